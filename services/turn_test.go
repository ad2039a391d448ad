package services

import (
	"testing"
	"time"

	"debatearena/models"
)

func TestTurnInfoArgumentWindows(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	phaseLen := 70 * time.Second

	tests := []struct {
		name     string
		phase    models.Phase
		elapsed  time.Duration
		speaker  Speaker
		timeLeft time.Duration
	}{
		{"opening start", models.PhaseOpening, 0, SpeakerA, 30 * time.Second},
		{"opening first window", models.PhaseOpening, 10 * time.Second, SpeakerA, 20 * time.Second},
		{"opening transition", models.PhaseOpening, 30 * time.Second, SpeakerTransition, 10 * time.Second},
		{"opening second speaker", models.PhaseOpening, 45 * time.Second, SpeakerB, 25 * time.Second},
		{"opening over", models.PhaseOpening, 75 * time.Second, SpeakerNone, 0},
		{"rebuttal opens with b", models.PhaseRebuttal, 5 * time.Second, SpeakerB, 25 * time.Second},
		{"rebuttal transition", models.PhaseRebuttal, 39 * time.Second, SpeakerTransition, time.Second},
		{"rebuttal answers with a", models.PhaseRebuttal, 40 * time.Second, SpeakerA, 30 * time.Second},
		{"final opens with a", models.PhaseFinal, 29 * time.Second, SpeakerA, time.Second},
		{"final second speaker", models.PhaseFinal, 69 * time.Second, SpeakerB, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TurnInfo(tt.phase, start, phaseLen, start.Add(tt.elapsed))
			if got.Speaker != tt.speaker {
				t.Errorf("speaker = %s, want %s", got.Speaker, tt.speaker)
			}
			if got.TimeLeft != tt.timeLeft {
				t.Errorf("time left = %v, want %v", got.TimeLeft, tt.timeLeft)
			}
		})
	}
}

func TestTurnInfoNonArgumentPhases(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got := TurnInfo(models.PhaseOpeningPrep, start, 30*time.Second, start.Add(12*time.Second))
	if got.Speaker != SpeakerNone || got.TimeLeft != 18*time.Second {
		t.Errorf("prep: got %+v", got)
	}

	got = TurnInfo(models.PhaseJudging, start, 15*time.Second, start.Add(time.Minute))
	if got.Speaker != SpeakerNone || got.TimeLeft != 0 {
		t.Errorf("judging past deadline should clamp to zero, got %+v", got)
	}
}

func TestTurnInfoClockSkew(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := TurnInfo(models.PhaseOpening, start, 70*time.Second, start.Add(-5*time.Second))
	if got.Speaker != SpeakerA || got.TimeLeft != 30*time.Second {
		t.Errorf("negative elapsed should behave like phase start, got %+v", got)
	}
}

func TestTurnInfoTimeLeftNeverNegative(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, phase := range []models.Phase{models.PhaseSideSelection, models.PhaseOpeningPrep, models.PhaseOpening, models.PhaseRebuttal, models.PhaseFinal, models.PhaseJudging} {
		for s := -10; s <= 120; s++ {
			got := TurnInfo(phase, start, 70*time.Second, start.Add(time.Duration(s)*time.Second))
			if got.TimeLeft < 0 {
				t.Fatalf("%s at %ds: negative time left %v", phase, s, got.TimeLeft)
			}
		}
	}
}

func TestFirstSpeaker(t *testing.T) {
	if FirstSpeaker(models.PhaseOpening) != models.SlotA {
		t.Error("opening should start with A")
	}
	if FirstSpeaker(models.PhaseRebuttal) != models.SlotB {
		t.Error("rebuttal should start with B")
	}
	if FirstSpeaker(models.PhaseFinal) != models.SlotA {
		t.Error("final should start with A")
	}
}

func TestTurnSecondsRoundsUp(t *testing.T) {
	if got := (Turn{TimeLeft: 1500 * time.Millisecond}).Seconds(); got != 2 {
		t.Errorf("Seconds() = %d, want 2", got)
	}
	if got := (Turn{TimeLeft: 3 * time.Second}).Seconds(); got != 3 {
		t.Errorf("Seconds() = %d, want 3", got)
	}
}

func TestRoomTurnWithoutPhase(t *testing.T) {
	room := models.NewRoom("r1", "topic", time.Now())
	if got := RoomTurn(room, time.Now()); got.Speaker != SpeakerNone || got.TimeLeft != 0 {
		t.Errorf("waiting room should have no speaker, got %+v", got)
	}
	if PhaseElapsed(room, time.Now()) {
		t.Error("room without a phase cannot have an elapsed deadline")
	}
}
