package services

import (
	"context"
	"testing"

	"debatearena/models"
)

func TestDamage(t *testing.T) {
	if d := Damage(&models.Verdict{ProScore: 70, ConScore: 40}); d != 30 {
		t.Errorf("Damage = %d, want 30", d)
	}
	if d := Damage(&models.Verdict{ProScore: 40, ConScore: 70}); d != 30 {
		t.Errorf("Damage = %d, want 30", d)
	}
	if d := Damage(&models.Verdict{ProScore: 55, ConScore: 55}); d != 0 {
		t.Errorf("Damage = %d, want 0", d)
	}
}

func TestApplyVerdictHitsLosingSide(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	room := debatingRoom("r1", models.PhaseJudging, rig.clock.Now(), 15)
	// alice argues con here, so a pro win hurts her
	room.PlayerASide, room.PlayerBSide = models.SideCon, models.SidePro
	room.JudgingPhase = models.PhaseOpening
	mustCreate(t, rig.store, room)

	outcome := NewOutcome(rig.store)
	applied, err := outcome.ApplyVerdict(ctx, "r1", &models.Verdict{Phase: models.PhaseOpening, WinningSide: models.SidePro, ProScore: 70, ConScore: 40})
	if err != nil || !applied {
		t.Fatalf("ApplyVerdict = %v, %v", applied, err)
	}
	got := mustGet(t, rig.store, "r1")
	if got.PlayerAHealth != 70 || got.PlayerBHealth != 100 {
		t.Errorf("health = %d/%d, want 70/100", got.PlayerAHealth, got.PlayerBHealth)
	}
}

func TestApplyVerdictFloorsAtZero(t *testing.T) {
	rig := newTestRig(t, nil)
	room := debatingRoom("r1", models.PhaseJudging, rig.clock.Now(), 15)
	room.JudgingPhase = models.PhaseRebuttal
	room.PlayerBHealth = 20
	mustCreate(t, rig.store, room)

	outcome := NewOutcome(rig.store)
	if _, err := outcome.ApplyVerdict(context.Background(), "r1", &models.Verdict{Phase: models.PhaseRebuttal, WinningSide: models.SidePro, ProScore: 70, ConScore: 40}); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, rig.store, "r1"); got.PlayerBHealth != 0 {
		t.Errorf("con health = %d, want 0", got.PlayerBHealth)
	}
}

func TestApplyVerdictEqualScoresClosesWindow(t *testing.T) {
	rig := newTestRig(t, nil)
	room := debatingRoom("r1", models.PhaseJudging, rig.clock.Now(), 15)
	room.JudgingPhase = models.PhaseOpening
	mustCreate(t, rig.store, room)

	applied, err := NewOutcome(rig.store).ApplyVerdict(context.Background(), "r1", &models.Verdict{Phase: models.PhaseOpening, WinningSide: models.SideCon, ProScore: 50, ConScore: 50})
	if err != nil || !applied {
		t.Fatalf("ApplyVerdict = %v, %v", applied, err)
	}
	got := mustGet(t, rig.store, "r1")
	if got.PlayerAHealth != 100 || got.PlayerBHealth != 100 || !got.JudgingDone {
		t.Errorf("unexpected room %+v", got)
	}
}

func TestApplyVerdictAfterWindowClosed(t *testing.T) {
	rig := newTestRig(t, nil)
	room := debatingRoom("r1", models.PhaseRebuttal, rig.clock.Now(), 70)
	room.JudgingPhase = models.PhaseOpening
	room.JudgingDone = true
	room.JudgingFailed = true
	mustCreate(t, rig.store, room)

	applied, err := NewOutcome(rig.store).ApplyVerdict(context.Background(), "r1", &models.Verdict{Phase: models.PhaseOpening, WinningSide: models.SidePro, ProScore: 90, ConScore: 10})
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("late verdict should not apply")
	}
	if got := mustGet(t, rig.store, "r1"); got.PlayerBHealth != 100 {
		t.Errorf("late verdict changed health to %d", got.PlayerBHealth)
	}
}

func TestResolveWinner(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int
		winner string
	}{
		{"b ahead", 20, 60, "bob"},
		{"a ahead", 61, 60, "alice"},
		{"a knocked out", 0, 5, "bob"},
		{"b knocked out", 40, 0, "alice"},
		{"tie", 50, 50, ""},
		{"both knocked out", 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := debatingRoom("r1", models.PhaseJudging, newTestClock().Now(), 15)
			room.PlayerAHealth, room.PlayerBHealth = tt.a, tt.b
			w := ResolveWinner(room)
			if tt.winner == "" {
				if w != nil {
					t.Errorf("expected tie, got %+v", w)
				}
				return
			}
			if w == nil || w.ID != tt.winner {
				t.Errorf("winner = %+v, want %s", w, tt.winner)
			}
		})
	}
}
