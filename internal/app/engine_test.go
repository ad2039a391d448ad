package app

import (
	"context"
	"testing"
	"time"

	"debatearena/config"
	"debatearena/db"
	"debatearena/models"
)

func TestBuildWithoutBackends(t *testing.T) {
	e, err := Build(context.Background(), config.Default())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close(context.Background())

	if _, ok := e.Store.(*db.MemoryStore); !ok {
		t.Errorf("store = %T, want in-memory", e.Store)
	}
	if e.Events != nil {
		t.Error("events reader set without Redis")
	}
}

func TestRunTickerStopsBeforeClose(t *testing.T) {
	e, err := Build(context.Background(), config.Default())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	room := models.NewRoom("r1", "Remote work beats office work", time.Now())
	room.PlayerAID, room.PlayerBID = "alice", "bob"
	room.Status = models.StatusDebating
	room.PlayerASide, room.PlayerBSide = models.SidePro, models.SideCon
	room.CurrentPhase = models.PhaseOpeningPrep
	start := models.Stamp(time.Now().Add(-time.Minute))
	dur := 30
	room.PhaseStartTime, room.PhaseDuration = &start, &dur
	if err := e.Store.CreateRoom(context.Background(), room); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := e.RunTicker(ctx, time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := e.Store.GetRoom(context.Background(), "r1")
		if got.CurrentPhase == models.PhaseOpening {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ticker never advanced the room, phase = %s", got.CurrentPhase)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop after cancel")
	}
	e.Close(context.Background())
}
