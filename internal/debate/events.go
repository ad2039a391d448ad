package debate

import (
	"encoding/json"
	"time"

	"debatearena/models"
)

// Room event types published to the room's stream
const (
	EventPlayerJoined   = "player_joined"
	EventPlayerLeft     = "player_left"
	EventPlayerReady    = "player_ready"
	EventGameStarted    = "game_started"
	EventVoteCast       = "vote_cast"
	EventSidesAssigned  = "sides_assigned"
	EventPhaseChanged   = "phase_changed"
	EventJudgingStarted = "judging_started"
	EventVerdictApplied = "verdict_applied"
	EventJudgingFailed  = "judging_failed"
	EventGameFinished   = "game_finished"
	EventMessagePosted  = "message_posted"
)

// Event represents a room event published to a Redis Stream
type Event struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// RoomStatePayload describes a room after a phase or status change
type RoomStatePayload struct {
	RoomID          string     `json:"roomId"`
	Status          string     `json:"status"`
	Phase           string     `json:"phase,omitempty"`
	PhaseStartTime  *time.Time `json:"phaseStartTime,omitempty"`
	PhaseDuration   int        `json:"phaseDuration,omitempty"`
	JudgingPhase    string     `json:"judgingPhase,omitempty"`
	JudgingTimedOut bool       `json:"judgingTimedOut,omitempty"`
	SideA           string     `json:"playerASide,omitempty"`
	SideB           string     `json:"playerBSide,omitempty"`
	HealthA         *int       `json:"playerAHealth,omitempty"`
	HealthB         *int       `json:"playerBHealth,omitempty"`
	WinnerID        string     `json:"winnerId,omitempty"`
	WinnerName      string     `json:"winnerName,omitempty"`
}

// RoomSnapshot builds a state payload from a full room read
func RoomSnapshot(r *models.Room) RoomStatePayload {
	p := RoomStatePayload{
		RoomID:         r.ID,
		Status:         string(r.Status),
		Phase:          string(r.CurrentPhase),
		PhaseStartTime: r.PhaseStartTime,
		JudgingPhase:   string(r.JudgingPhase),
		SideA:          string(r.PlayerASide),
		SideB:          string(r.PlayerBSide),
	}
	if r.PhaseDuration != nil {
		p.PhaseDuration = *r.PhaseDuration
	}
	a, b := r.PlayerAHealth, r.PlayerBHealth
	p.HealthA, p.HealthB = &a, &b
	if r.WinnerID != nil {
		p.WinnerID = *r.WinnerID
	}
	if r.WinnerName != nil {
		p.WinnerName = *r.WinnerName
	}
	return p
}

// VerdictPayload represents an applied judge verdict
type VerdictPayload struct {
	RoomID      string `json:"roomId"`
	Phase       string `json:"phase"`
	WinningSide string `json:"winningSide"`
	ProScore    int    `json:"proScore"`
	ConScore    int    `json:"conScore"`
	Damage      int    `json:"damage"`
	Rationale   string `json:"rationale,omitempty"`
}

// JudgingFailedPayload represents a judging attempt that produced no verdict
type JudgingFailedPayload struct {
	RoomID string `json:"roomId"`
	Phase  string `json:"phase"`
}

// MessagePayload represents a transcript message
type MessagePayload struct {
	ID         string `json:"id"`
	RoomID     string `json:"roomId"`
	AuthorName string `json:"authorName,omitempty"`
	AuthorSlot string `json:"authorSlot,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Side       string `json:"side,omitempty"`
	Content    string `json:"content"`
}

// NewEvent creates a new event with timestamp
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// MarshalEvent marshals an event to JSON string for Redis Stream
func MarshalEvent(event *Event) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEvent unmarshals a JSON string to an Event
func UnmarshalEvent(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	return &event, nil
}
