package services

import (
	"context"
	"fmt"
	"time"

	"debatearena/models"

	"github.com/rs/zerolog/log"
)

// Damage is the health a verdict removes from the losing side
func Damage(v *models.Verdict) int {
	d := v.ProScore - v.ConScore
	if d < 0 {
		d = -d
	}
	return d
}

// Outcome applies verdicts to room health and decides the final winner
type Outcome struct {
	rooms RoomStore
	now   func() time.Time
}

func NewOutcome(rooms RoomStore) *Outcome {
	return &Outcome{rooms: rooms, now: time.Now}
}

// ApplyVerdict deducts the verdict's damage from the party arguing the losing side. It
// reports false when the judging window had already closed, in which case nothing changed.
func (o *Outcome) ApplyVerdict(ctx context.Context, roomID string, v *models.Verdict) (bool, error) {
	guard := models.JudgingGuard{RoomID: roomID, Phase: v.Phase}
	applied, err := o.rooms.ApplyDamage(ctx, guard, v.LosingSide(), Damage(v), models.Stamp(o.now()))
	if err != nil {
		return false, fmt.Errorf("apply damage: %w", err)
	}
	if !applied {
		log.Warn().Str("roomId", roomID).Str("phase", string(v.Phase)).
			Msg("Verdict arrived after judging window closed, health unchanged")
		return false, nil
	}
	log.Info().Str("roomId", roomID).Str("phase", string(v.Phase)).
		Str("loser", string(v.LosingSide())).Int("damage", Damage(v)).
		Msg("Verdict applied")
	return true, nil
}

// ResolveWinner decides a finished contest. A party at 0 health loses outright, otherwise
// strictly greater health wins. Equal health is a tie and returns nil.
func ResolveWinner(room *models.Room) *models.Winner {
	a, b := room.PlayerAHealth, room.PlayerBHealth
	var slot models.Slot
	switch {
	case a <= 0 && b > 0:
		slot = models.SlotB
	case b <= 0 && a > 0:
		slot = models.SlotA
	case a > b:
		slot = models.SlotA
	case b > a:
		slot = models.SlotB
	default:
		return nil
	}
	return &models.Winner{ID: room.PlayerID(slot), Name: room.PlayerName(slot)}
}
