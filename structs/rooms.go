package structs

import "time"

type CreateRoomRequest struct {
	Topic string `json:"topic" binding:"required"`
}

type ReadyRequest struct {
	Ready *bool `json:"ready" binding:"required"`
}

type VoteRequest struct {
	Side string `json:"side" binding:"required,oneof=pro con"`
}

type MessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Vote   string `json:"vote,omitempty"`
	Side   string `json:"side,omitempty"`
	Health int    `json:"health"`
}

type RoomResponse struct {
	ID             string      `json:"id"`
	Topic          string      `json:"topic"`
	Status         string      `json:"status"`
	CurrentPhase   string      `json:"currentPhase,omitempty"`
	PhaseStartTime *time.Time  `json:"phaseStartTime,omitempty"`
	PhaseDuration  *int        `json:"phaseDuration,omitempty"`
	PlayerA        *PlayerView `json:"playerA,omitempty"`
	PlayerB        *PlayerView `json:"playerB,omitempty"`
	JudgingPhase   string      `json:"judgingPhase,omitempty"`
	JudgingFailed  bool        `json:"judgingFailed,omitempty"`
	WinnerID       *string     `json:"winnerId,omitempty"`
	WinnerName     *string     `json:"winnerName,omitempty"`
	// YourSlot is "a" or "b" when the caller is seated in the room.
	YourSlot string `json:"yourSlot,omitempty"`
}

type TurnResponse struct {
	RoomID        string `json:"roomId"`
	Phase         string `json:"phase,omitempty"`
	Speaker       string `json:"speaker"`
	TimeLeft      int    `json:"timeLeft"`
	YourTurn      bool   `json:"yourTurn"`
	PhaseTimeLeft int    `json:"phaseTimeLeft"`
}

type MessageResponse struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	AuthorName string    `json:"authorName,omitempty"`
	AuthorSlot string    `json:"authorSlot,omitempty"`
	Phase      string    `json:"phase,omitempty"`
	Side       string    `json:"side,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type EvaluateResponse struct {
	RoomID   string `json:"roomId"`
	Advanced bool   `json:"advanced"`
}
