package services

import (
	"time"

	"debatearena/models"
)

// Speaker says who may act right now in a room
type Speaker string

const (
	SpeakerNone       Speaker = "none"
	SpeakerA          Speaker = "a"
	SpeakerB          Speaker = "b"
	SpeakerTransition Speaker = "transition"
)

// Argument round windows, measured from the phase start
const (
	ArgumentPhaseSeconds = 70
	firstWindowEnd       = 30 * time.Second
	transitionWindowEnd  = 40 * time.Second
	argumentWindowEnd    = ArgumentPhaseSeconds * time.Second
)

// Turn is the scheduler's answer for one instant
type Turn struct {
	Speaker  Speaker       `json:"speaker"`
	TimeLeft time.Duration `json:"-"`
}

// Seconds returns the remaining time rounded up to whole seconds, the unit clients count down in
func (t Turn) Seconds() int {
	s := t.TimeLeft / time.Second
	if t.TimeLeft%time.Second != 0 {
		s++
	}
	return int(s)
}

// FirstSpeaker is the seat that opens an argument round. Party A opens the opening and
// final rounds; party B opens the rebuttal so each side answers the other once.
func FirstSpeaker(phase models.Phase) models.Slot {
	if phase == models.PhaseRebuttal {
		return models.SlotB
	}
	return models.SlotA
}

func speakerFor(s models.Slot) Speaker {
	if s == models.SlotB {
		return SpeakerB
	}
	return SpeakerA
}

// TurnInfo computes who may speak and how long remains at now. It is pure and safe to
// call on every refresh.
func TurnInfo(phase models.Phase, start time.Time, duration time.Duration, now time.Time) Turn {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := duration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	if !phase.IsArgument() {
		return Turn{Speaker: SpeakerNone, TimeLeft: remaining}
	}

	first := FirstSpeaker(phase)
	switch {
	case elapsed < firstWindowEnd:
		return Turn{Speaker: speakerFor(first), TimeLeft: firstWindowEnd - elapsed}
	case elapsed < transitionWindowEnd:
		return Turn{Speaker: SpeakerTransition, TimeLeft: transitionWindowEnd - elapsed}
	case elapsed < argumentWindowEnd:
		return Turn{Speaker: speakerFor(first.Other()), TimeLeft: argumentWindowEnd - elapsed}
	default:
		return Turn{Speaker: SpeakerNone, TimeLeft: remaining}
	}
}

// RoomTurn applies TurnInfo to a room's current phase
func RoomTurn(room *models.Room, now time.Time) Turn {
	if room.PhaseStartTime == nil || room.PhaseDuration == nil {
		return Turn{Speaker: SpeakerNone}
	}
	return TurnInfo(room.CurrentPhase, *room.PhaseStartTime, time.Duration(*room.PhaseDuration)*time.Second, now)
}

// PhaseElapsed reports whether the room's current phase deadline has passed
func PhaseElapsed(room *models.Room, now time.Time) bool {
	deadline, ok := room.Deadline()
	if !ok {
		return false
	}
	return !now.Before(deadline)
}
