package models

import (
	"errors"
	"time"
)

// ErrVerdictExists is returned when a verdict for the same room and phase is already stored
var ErrVerdictExists = errors.New("verdict already recorded for phase")

// Verdict is the judge's scored outcome for one argument round
type Verdict struct {
	ID          string    `json:"id" bson:"_id"`
	RoomID      string    `json:"roomId" bson:"roomId"`
	Phase       Phase     `json:"phase" bson:"phase"`
	WinningSide Side      `json:"winningSide" bson:"winningSide"`
	ProScore    int       `json:"proScore" bson:"proScore"`
	ConScore    int       `json:"conScore" bson:"conScore"`
	Rationale   string    `json:"rationale" bson:"rationale"`
	Raw         string    `json:"-" bson:"raw,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// LosingSide is the side that takes damage from this verdict
func (v *Verdict) LosingSide() Side {
	return v.WinningSide.Opposite()
}
