package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"debatearena/db"
	"debatearena/internal/debate"
	"debatearena/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeJudge answers with canned responses in order, repeating the last one
type fakeJudge struct {
	mu        sync.Mutex
	responses []string
	err       error
	release   chan struct{}
	prompts   []string
}

func (f *fakeJudge) Evaluate(ctx context.Context, prompt string) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeJudge) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func verdictJSON(winner string, pro, con int) string {
	return fmt.Sprintf("Here is my decision.\n```json\n{\"winner\": %q, \"pro_score\": %d, \"con_score\": %d, \"rationale\": \"clearer evidence\"}\n```", winner, pro, con)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, e *debate.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, e.Type)
	return nil
}

func (p *recordingPublisher) Has(eventType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.types {
		if t == eventType {
			return true
		}
	}
	return false
}

type testRig struct {
	store     *db.MemoryStore
	clock     *testClock
	judge     *fakeJudge
	machine   *PhaseMachine
	rooms     *RoomService
	publisher *recordingPublisher
}

func newTestRig(t *testing.T, judge *fakeJudge) *testRig {
	t.Helper()
	store := db.NewMemoryStore()
	return newTestRigWithStore(t, store, store, judge)
}

func newTestRigWithStore(t *testing.T, mem *db.MemoryStore, store Store, judge *fakeJudge) *testRig {
	t.Helper()
	clock := newTestClock()
	var j Judge
	if judge != nil {
		j = judge
	}
	judges := NewJudgeService(store, j, NewOutcome(store))
	judges.now = clock.Now
	judges.outcome.now = clock.Now

	pub := &recordingPublisher{}
	machine := NewPhaseMachine(store, judges, pub, DefaultTimings())
	machine.now = clock.Now
	machine.coin = fixedCoin(true)

	rooms := NewRoomService(store, machine, nil, pub)
	rooms.now = clock.Now

	t.Cleanup(machine.Wait)
	return &testRig{store: mem, clock: clock, judge: judge, machine: machine, rooms: rooms, publisher: pub}
}

// debatingRoom seats alice (pro) and bob (con) in a running debate
func debatingRoom(id string, phase models.Phase, start time.Time, duration int) *models.Room {
	r := models.NewRoom(id, "Remote work beats office work", start)
	r.PlayerAID, r.PlayerAName = "alice", "Alice"
	r.PlayerBID, r.PlayerBName = "bob", "Bob"
	r.PlayerAReady, r.PlayerBReady = true, true
	r.Status = models.StatusDebating
	r.PlayerASide, r.PlayerBSide = models.SidePro, models.SideCon
	r.CurrentPhase = phase
	s := models.Stamp(start)
	r.PhaseStartTime = &s
	r.PhaseDuration = &duration
	return r
}

func mustCreate(t *testing.T, store Store, r *models.Room) {
	t.Helper()
	if err := store.CreateRoom(context.Background(), r); err != nil {
		t.Fatalf("create room: %v", err)
	}
}

func mustGet(t *testing.T, store Store, id string) *models.Room {
	t.Helper()
	r, err := store.GetRoom(context.Background(), id)
	if err != nil {
		t.Fatalf("get room %s: %v", id, err)
	}
	return r
}
