package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"debatearena/internal/debate"
	"debatearena/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Timings are the phase lengths the machine schedules
type Timings struct {
	SideSelection time.Duration
	OpeningPrep   time.Duration
	Argument      time.Duration
	Judging       time.Duration
	// JudgeTimeout bounds one external judge call.
	JudgeTimeout time.Duration
}

// DefaultTimings returns the standard contest schedule
func DefaultTimings() Timings {
	return Timings{
		SideSelection: 30 * time.Second,
		OpeningPrep:   30 * time.Second,
		Argument:      ArgumentPhaseSeconds * time.Second,
		Judging:       15 * time.Second,
		JudgeTimeout:  60 * time.Second,
	}
}

// PhaseJudge judges one argument round
type PhaseJudge interface {
	JudgePhase(ctx context.Context, roomID string, phase models.Phase) (*models.Verdict, error)
}

// Publisher pushes room change events to subscribed clients
type Publisher interface {
	Publish(ctx context.Context, roomID string, event *debate.Event) error
}

// TickReport summarises one polling pass
type TickReport struct {
	Scanned  int `json:"scanned"`
	Advanced int `json:"advanced"`
	Failed   int `json:"failed"`
}

// PhaseMachine owns every phase and status transition. It keeps no per-room state in
// memory: each pass re-reads the store and writes guarded transitions, so any number of
// instances may tick concurrently.
type PhaseMachine struct {
	store     Store
	judge     PhaseJudge
	publisher Publisher
	coin      Coin
	timings   Timings
	now       func() time.Time

	inflight singleflight.Group
	judging  sync.WaitGroup
}

// NewPhaseMachine wires the machine. A nil publisher disables event publishing.
func NewPhaseMachine(store Store, judge PhaseJudge, publisher Publisher, timings Timings) *PhaseMachine {
	if publisher == nil {
		publisher = debate.NoopPublisher{}
	}
	return &PhaseMachine{
		store:     store,
		judge:     judge,
		publisher: publisher,
		coin:      DefaultCoin,
		timings:   timings,
		now:       time.Now,
	}
}

// Tick runs one pass over all active rooms. A failure in one room is logged and does not
// stop the others; only failing to list rooms is returned.
func (m *PhaseMachine) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport
	rooms, err := m.store.ListActiveRooms(ctx)
	if err != nil {
		return report, fmt.Errorf("list active rooms: %w", err)
	}
	report.Scanned = len(rooms)
	for i := range rooms {
		advanced, err := m.safeAdvance(ctx, &rooms[i])
		if err != nil {
			report.Failed++
			log.Error().Err(err).Str("roomId", rooms[i].ID).Msg("Failed to process room, retrying next tick")
			continue
		}
		if advanced {
			report.Advanced++
		}
	}
	if report.Advanced > 0 || report.Failed > 0 {
		log.Info().Int("scanned", report.Scanned).Int("advanced", report.Advanced).Int("failed", report.Failed).Msg("Tick complete")
	}
	return report, nil
}

// ProcessRoom re-reads one room and applies whatever transition is due
func (m *PhaseMachine) ProcessRoom(ctx context.Context, roomID string) (bool, error) {
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	return m.safeAdvance(ctx, room)
}

// Reevaluate is the administrative entry point for a single room. Concurrent calls for
// the same room in this process share one evaluation.
func (m *PhaseMachine) Reevaluate(ctx context.Context, roomID string) (bool, error) {
	v, err, _ := m.inflight.Do(roomID, func() (interface{}, error) {
		return m.ProcessRoom(ctx, roomID)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Wait blocks until every dispatched judge call has returned
func (m *PhaseMachine) Wait() {
	m.judging.Wait()
}

func (m *PhaseMachine) safeAdvance(ctx context.Context, room *models.Room) (advanced bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while advancing room: %v", r)
		}
	}()
	return m.advance(ctx, room)
}

func (m *PhaseMachine) advance(ctx context.Context, room *models.Room) (bool, error) {
	if room.Status != models.StatusSideSelection && room.Status != models.StatusDebating {
		return false, nil
	}
	now := m.now()

	if room.CurrentPhase == models.PhaseSideSelection {
		bothVoted := room.PlayerAVote.Valid() && room.PlayerBVote.Valid()
		if !bothVoted && !PhaseElapsed(room, now) {
			return false, nil
		}
		return m.FinalizeSides(ctx, room)
	}

	if !PhaseElapsed(room, now) {
		return false, nil
	}

	switch {
	case room.CurrentPhase == models.PhaseOpeningPrep:
		return m.apply(ctx, room.ID, &models.Transition{
			FromStatus: models.StatusDebating,
			FromPhase:  models.PhaseOpeningPrep,
			FromStart:  room.PhaseStartTime,
			ToStatus:   models.StatusDebating,
			ToPhase:    models.PhaseOpening,
			Start:      models.Stamp(now),
			Duration:   seconds(m.timings.Argument),
			At:         models.Stamp(now),
		}, debate.EventPhaseChanged)
	case room.CurrentPhase.IsArgument():
		return m.beginJudging(ctx, room, now)
	case room.CurrentPhase == models.PhaseJudging:
		return m.closeJudging(ctx, room, now)
	default:
		return false, fmt.Errorf("room in unknown phase %q", room.CurrentPhase)
	}
}

// StartGame moves a waiting room with both parties ready into side selection
func (m *PhaseMachine) StartGame(ctx context.Context, room *models.Room) (bool, error) {
	if room.Status != models.StatusWaiting || !room.BothReady() {
		return false, nil
	}
	now := models.Stamp(m.now())
	return m.apply(ctx, room.ID, &models.Transition{
		FromStatus:       models.StatusWaiting,
		FromPhase:        models.PhaseNone,
		RequireBothReady: true,
		ToStatus:         models.StatusSideSelection,
		ToPhase:          models.PhaseSideSelection,
		Start:            now,
		Duration:         seconds(m.timings.SideSelection),
		At:               now,
	}, debate.EventGameStarted)
}

// FinalizeSides resolves the side votes and opens preparation. Once sides are assigned
// this is a no-op.
func (m *PhaseMachine) FinalizeSides(ctx context.Context, room *models.Room) (bool, error) {
	if room.SidesAssigned() || room.CurrentPhase != models.PhaseSideSelection {
		return false, nil
	}
	sideA, sideB := ResolveSides(room.PlayerAVote, room.PlayerBVote, m.coin)
	now := models.Stamp(m.now())
	return m.apply(ctx, room.ID, &models.Transition{
		FromStatus:        models.StatusSideSelection,
		FromPhase:         models.PhaseSideSelection,
		FromStart:         room.PhaseStartTime,
		RequireSidesUnset: true,
		ToStatus:          models.StatusDebating,
		ToPhase:           models.PhaseOpeningPrep,
		Start:             now,
		Duration:          seconds(m.timings.OpeningPrep),
		SideA:             sideA,
		SideB:             sideB,
		At:                now,
	}, debate.EventSidesAssigned)
}

func (m *PhaseMachine) beginJudging(ctx context.Context, room *models.Room, now time.Time) (bool, error) {
	judged := room.CurrentPhase
	applied, err := m.apply(ctx, room.ID, &models.Transition{
		FromStatus:   models.StatusDebating,
		FromPhase:    judged,
		FromStart:    room.PhaseStartTime,
		ToStatus:     models.StatusDebating,
		ToPhase:      models.PhaseJudging,
		Start:        models.Stamp(now),
		Duration:     seconds(m.timings.Judging),
		JudgingPhase: judged,
		At:           models.Stamp(now),
	}, debate.EventJudgingStarted)
	if err != nil || !applied {
		return applied, err
	}
	m.dispatchJudging(room.ID, judged)
	return true, nil
}

func (m *PhaseMachine) closeJudging(ctx context.Context, room *models.Room, now time.Time) (bool, error) {
	judged := room.JudgingPhase
	if !judged.IsArgument() {
		return false, fmt.Errorf("room is judging without a judged round (judgingPhase=%q)", judged)
	}
	done := room.JudgingDone
	t := &models.Transition{
		FromStatus:       models.StatusDebating,
		FromPhase:        models.PhaseJudging,
		FromStart:        room.PhaseStartTime,
		FromJudgingPhase: judged,
		FromJudgingDone:  &done,
		JudgingTimedOut:  !done,
		At:               models.Stamp(now),
	}
	if !done {
		log.Warn().Str("roomId", room.ID).Str("phase", string(judged)).Msg("Judging window elapsed without a verdict, proceeding without damage")
	}

	if next := judged.NextArgument(); next != models.PhaseNone {
		t.ToStatus = models.StatusDebating
		t.ToPhase = next
		t.Start = models.Stamp(now)
		t.Duration = seconds(m.timings.Argument)
		return m.apply(ctx, room.ID, t, debate.EventPhaseChanged)
	}

	health := [2]int{room.PlayerAHealth, room.PlayerBHealth}
	t.FromHealth = &health
	t.ToStatus = models.StatusFinished
	t.ToPhase = models.PhaseNone
	t.Winner = ResolveWinner(room)
	return m.apply(ctx, room.ID, t, debate.EventGameFinished)
}

func (m *PhaseMachine) dispatchJudging(roomID string, phase models.Phase) {
	if m.judge == nil {
		log.Warn().Str("roomId", roomID).Msg("No judge configured, judging window will time out")
		return
	}
	m.judging.Add(1)
	go func() {
		defer m.judging.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("roomId", roomID).Msg("Judge call panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), m.timings.JudgeTimeout)
		defer cancel()

		verdict, err := m.judge.JudgePhase(ctx, roomID, phase)
		ctx, cancelFollowUp := context.WithTimeout(context.Background(), followUpTimeout)
		defer cancelFollowUp()
		if errors.Is(err, ErrJudgingClosed) || errors.Is(err, models.ErrVerdictExists) {
			return
		}
		if err != nil {
			log.Error().Err(err).Str("roomId", roomID).Str("phase", string(phase)).Msg("Judging failed")
			m.publish(ctx, roomID, debate.EventJudgingFailed, debate.JudgingFailedPayload{
				RoomID: roomID,
				Phase:  string(phase),
			})
			return
		}
		m.publish(ctx, roomID, debate.EventVerdictApplied, debate.VerdictPayload{
			RoomID:      roomID,
			Phase:       string(verdict.Phase),
			WinningSide: string(verdict.WinningSide),
			ProScore:    verdict.ProScore,
			ConScore:    verdict.ConScore,
			Damage:      Damage(verdict),
			Rationale:   verdict.Rationale,
		})
	}()
}

func (m *PhaseMachine) apply(ctx context.Context, roomID string, t *models.Transition, eventType string) (bool, error) {
	applied, err := m.store.TransitionRoom(ctx, roomID, t)
	if err != nil {
		return false, fmt.Errorf("transition %s/%s -> %s/%s: %w", t.FromStatus, t.FromPhase, t.ToStatus, t.ToPhase, err)
	}
	if !applied {
		log.Debug().Str("roomId", roomID).Str("from", string(t.FromPhase)).Msg("Room changed concurrently, transition skipped")
		return false, nil
	}
	log.Info().Str("roomId", roomID).Str("status", string(t.ToStatus)).
		Str("from", string(t.FromPhase)).Str("to", string(t.ToPhase)).Msg("Room advanced")
	m.publish(ctx, roomID, eventType, statePayload(roomID, t))
	return true, nil
}

func (m *PhaseMachine) publish(ctx context.Context, roomID, eventType string, payload interface{}) {
	event, err := debate.NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("roomId", roomID).Str("event", eventType).Msg("Failed to build event")
		return
	}
	if err := m.publisher.Publish(ctx, roomID, event); err != nil {
		log.Warn().Err(err).Str("roomId", roomID).Str("event", eventType).Msg("Failed to publish event")
	}
}

func statePayload(roomID string, t *models.Transition) debate.RoomStatePayload {
	p := debate.RoomStatePayload{
		RoomID:          roomID,
		Status:          string(t.ToStatus),
		Phase:           string(t.ToPhase),
		JudgingPhase:    string(t.JudgingPhase),
		SideA:           string(t.SideA),
		SideB:           string(t.SideB),
		JudgingTimedOut: t.JudgingTimedOut,
	}
	if t.ToPhase != models.PhaseNone {
		start := t.Start
		p.PhaseStartTime = &start
		p.PhaseDuration = t.Duration
	}
	if t.Winner != nil {
		p.WinnerID = t.Winner.ID
		p.WinnerName = t.Winner.Name
	}
	return p
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
