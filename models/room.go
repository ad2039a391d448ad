package models

import (
	"errors"
	"time"
)

// RoomStatus is the lifecycle status of a debate room
type RoomStatus string

const (
	StatusWaiting       RoomStatus = "waiting"
	StatusSideSelection RoomStatus = "side_selection"
	StatusDebating      RoomStatus = "debating"
	StatusFinished      RoomStatus = "finished"
)

// Phase is a named stage of a running debate. PhaseNone means no active phase.
type Phase string

const (
	PhaseNone          Phase = ""
	PhaseSideSelection Phase = "side_selection"
	PhaseOpeningPrep   Phase = "opening_prep"
	PhaseOpening       Phase = "opening"
	PhaseRebuttal      Phase = "rebuttal"
	PhaseFinal         Phase = "final"
	PhaseJudging       Phase = "judging"
)

// IsArgument reports whether the phase is one of the three judged argument rounds
func (p Phase) IsArgument() bool {
	return p == PhaseOpening || p == PhaseRebuttal || p == PhaseFinal
}

// NextArgument returns the argument round that follows p, or PhaseNone after the final.
func (p Phase) NextArgument() Phase {
	switch p {
	case PhaseOpening:
		return PhaseRebuttal
	case PhaseRebuttal:
		return PhaseFinal
	default:
		return PhaseNone
	}
}

// Side is the stance a party argues
type Side string

const (
	SideNone Side = ""
	SidePro  Side = "pro"
	SideCon  Side = "con"
)

// Opposite returns the other side. SideNone has no opposite.
func (s Side) Opposite() Side {
	switch s {
	case SidePro:
		return SideCon
	case SideCon:
		return SidePro
	default:
		return SideNone
	}
}

// Valid reports whether s is pro or con
func (s Side) Valid() bool {
	return s == SidePro || s == SideCon
}

// Slot identifies one of the two seats in a room
type Slot string

const (
	SlotNone Slot = ""
	SlotA    Slot = "a"
	SlotB    Slot = "b"
)

// Other returns the opposing slot
func (s Slot) Other() Slot {
	switch s {
	case SlotA:
		return SlotB
	case SlotB:
		return SlotA
	default:
		return SlotNone
	}
}

const MaxHealth = 100

// Room is one live debate between two parties
type Room struct {
	ID    string `json:"id" bson:"_id"`
	Topic string `json:"topic" bson:"topic"`

	PlayerAID    string `json:"playerAId,omitempty" bson:"playerAId,omitempty"`
	PlayerAName  string `json:"playerAName,omitempty" bson:"playerAName,omitempty"`
	PlayerBID    string `json:"playerBId,omitempty" bson:"playerBId,omitempty"`
	PlayerBName  string `json:"playerBName,omitempty" bson:"playerBName,omitempty"`
	PlayerAReady bool   `json:"playerAReady" bson:"playerAReady"`
	PlayerBReady bool   `json:"playerBReady" bson:"playerBReady"`

	Status         RoomStatus `json:"status" bson:"status"`
	CurrentPhase   Phase      `json:"currentPhase,omitempty" bson:"currentPhase,omitempty"`
	PhaseStartTime *time.Time `json:"phaseStartTime,omitempty" bson:"phaseStartTime,omitempty"`
	PhaseDuration  *int       `json:"phaseDuration,omitempty" bson:"phaseDuration,omitempty"` // seconds

	PlayerAVote Side `json:"playerAVote,omitempty" bson:"playerAVote,omitempty"`
	PlayerBVote Side `json:"playerBVote,omitempty" bson:"playerBVote,omitempty"`
	PlayerASide Side `json:"playerASide,omitempty" bson:"playerASide,omitempty"`
	PlayerBSide Side `json:"playerBSide,omitempty" bson:"playerBSide,omitempty"`

	PlayerAHealth int `json:"playerAHealth" bson:"playerAHealth"`
	PlayerBHealth int `json:"playerBHealth" bson:"playerBHealth"`

	// Judging state for the argument round most recently sent to the judge
	JudgingPhase  Phase  `json:"judgingPhase,omitempty" bson:"judgingPhase,omitempty"`
	JudgingDone   bool   `json:"judgingDone" bson:"judgingDone"`
	JudgingFailed bool   `json:"judgingFailed" bson:"judgingFailed"`
	JudgingError  string `json:"judgingError,omitempty" bson:"judgingError,omitempty"`

	WinnerID   *string `json:"winnerId,omitempty" bson:"winnerId,omitempty"`
	WinnerName *string `json:"winnerName,omitempty" bson:"winnerName,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewRoom returns a waiting room with full health for both seats
func NewRoom(id, topic string, now time.Time) *Room {
	return &Room{
		ID:            id,
		Topic:         topic,
		Status:        StatusWaiting,
		PlayerAHealth: MaxHealth,
		PlayerBHealth: MaxHealth,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SlotOf returns the seat held by playerID, or SlotNone for spectators.
func (r *Room) SlotOf(playerID string) Slot {
	switch {
	case playerID == "":
		return SlotNone
	case r.PlayerAID == playerID:
		return SlotA
	case r.PlayerBID == playerID:
		return SlotB
	default:
		return SlotNone
	}
}

func (r *Room) PlayerID(s Slot) string {
	if s == SlotA {
		return r.PlayerAID
	}
	if s == SlotB {
		return r.PlayerBID
	}
	return ""
}

func (r *Room) PlayerName(s Slot) string {
	if s == SlotA {
		return r.PlayerAName
	}
	if s == SlotB {
		return r.PlayerBName
	}
	return ""
}

// Present reports whether both seats are filled
func (r *Room) Present() bool {
	return r.PlayerAID != "" && r.PlayerBID != ""
}

// BothReady reports whether both seated parties have readied up
func (r *Room) BothReady() bool {
	return r.Present() && r.PlayerAReady && r.PlayerBReady
}

func (r *Room) Vote(s Slot) Side {
	if s == SlotA {
		return r.PlayerAVote
	}
	return r.PlayerBVote
}

func (r *Room) Side(s Slot) Side {
	if s == SlotA {
		return r.PlayerASide
	}
	if s == SlotB {
		return r.PlayerBSide
	}
	return SideNone
}

// SidesAssigned reports whether the final side assignment has been made
func (r *Room) SidesAssigned() bool {
	return r.PlayerASide.Valid() && r.PlayerBSide.Valid()
}

// SlotForSide returns the seat arguing side s
func (r *Room) SlotForSide(s Side) Slot {
	switch {
	case s == SideNone:
		return SlotNone
	case r.PlayerASide == s:
		return SlotA
	case r.PlayerBSide == s:
		return SlotB
	default:
		return SlotNone
	}
}

func (r *Room) Health(s Slot) int {
	if s == SlotA {
		return r.PlayerAHealth
	}
	return r.PlayerBHealth
}

// Deadline returns the end of the current phase and whether a phase is active
func (r *Room) Deadline() (time.Time, bool) {
	if r.PhaseStartTime == nil || r.PhaseDuration == nil {
		return time.Time{}, false
	}
	return r.PhaseStartTime.Add(time.Duration(*r.PhaseDuration) * time.Second), true
}

// Winner names the party that won a finished contest
type Winner struct {
	ID   string
	Name string
}

// ErrRoomNotFound is returned by stores when no room has the requested id
var ErrRoomNotFound = errors.New("room not found")
