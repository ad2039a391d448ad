package services

import (
	"context"
	"time"

	"debatearena/models"
)

// RoomStore is the persistent room table. Every write that moves a room between phases or
// statuses is guarded so that a stale writer becomes a silent no-op; the bool results report
// whether the write applied.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	// ListActiveRooms returns rooms in side selection or debating with a current phase.
	ListActiveRooms(ctx context.Context) ([]models.Room, error)
	TransitionRoom(ctx context.Context, id string, t *models.Transition) (bool, error)

	// ApplyDamage subtracts damage (floored at 0) from whichever party argues loser and
	// closes the judging window, only while g is still open.
	ApplyDamage(ctx context.Context, g models.JudgingGuard, loser models.Side, damage int, at time.Time) (bool, error)
	// MarkJudgingFailed closes the judging window for g with an error annotation.
	MarkJudgingFailed(ctx context.Context, g models.JudgingGuard, reason string, at time.Time) (bool, error)

	// Seat writes are limited to waiting rooms.
	SeatPlayer(ctx context.Context, id string, slot models.Slot, playerID, name string, at time.Time) (bool, error)
	ClearSeat(ctx context.Context, id string, slot models.Slot, playerID string, at time.Time) (bool, error)
	SetReady(ctx context.Context, id string, slot models.Slot, playerID string, ready bool, at time.Time) (bool, error)
	// SetVote records a side preference while side selection is open and unassigned.
	SetVote(ctx context.Context, id string, slot models.Slot, vote models.Side, at time.Time) (bool, error)
}

// MessageStore holds the append-only transcript
type MessageStore interface {
	InsertMessage(ctx context.Context, m *models.Message) error
	// ListPhaseMessages returns the messages of one phase in creation order.
	ListPhaseMessages(ctx context.Context, roomID string, phase models.Phase) ([]models.Message, error)
}

// VerdictStore persists one verdict per room and phase
type VerdictStore interface {
	// SaveVerdict returns models.ErrVerdictExists if the phase was already judged.
	SaveVerdict(ctx context.Context, v *models.Verdict) error
}

// Store bundles the persistence the engine needs
type Store interface {
	RoomStore
	MessageStore
	VerdictStore
}
