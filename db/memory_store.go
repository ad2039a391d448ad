package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"debatearena/models"
)

// MemoryStore keeps everything in process. It applies the same guards as MongoStore under
// a single mutex and backs local runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	rooms    map[string]*models.Room
	messages []models.Message
	verdicts map[string]models.Verdict
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]*models.Room),
		verdicts: make(map[string]models.Verdict),
	}
}

func cloneRoom(r *models.Room) *models.Room {
	c := *r
	if r.PhaseStartTime != nil {
		t := *r.PhaseStartTime
		c.PhaseStartTime = &t
	}
	if r.PhaseDuration != nil {
		d := *r.PhaseDuration
		c.PhaseDuration = &d
	}
	if r.WinnerID != nil {
		id := *r.WinnerID
		c.WinnerID = &id
	}
	if r.WinnerName != nil {
		name := *r.WinnerName
		c.WinnerName = &name
	}
	return &c
}

func (s *MemoryStore) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, models.ErrRoomNotFound
	}
	return cloneRoom(r), nil
}

func (s *MemoryStore) ListActiveRooms(_ context.Context) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rooms []models.Room
	for _, r := range s.rooms {
		if r.Status != models.StatusSideSelection && r.Status != models.StatusDebating {
			continue
		}
		if r.CurrentPhase == models.PhaseNone {
			continue
		}
		rooms = append(rooms, *cloneRoom(r))
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (s *MemoryStore) TransitionRoom(_ context.Context, id string, t *models.Transition) (bool, error) {
	return s.update(id, t.Matches, t.Apply)
}

func (s *MemoryStore) ApplyDamage(_ context.Context, g models.JudgingGuard, loser models.Side, damage int, at time.Time) (bool, error) {
	return s.update(g.RoomID, g.Matches, func(r *models.Room) {
		switch r.SlotForSide(loser) {
		case models.SlotA:
			r.PlayerAHealth = max(0, r.PlayerAHealth-damage)
		case models.SlotB:
			r.PlayerBHealth = max(0, r.PlayerBHealth-damage)
		}
		r.JudgingDone = true
		r.JudgingFailed = false
		r.UpdatedAt = at
	})
}

func (s *MemoryStore) MarkJudgingFailed(_ context.Context, g models.JudgingGuard, reason string, at time.Time) (bool, error) {
	return s.update(g.RoomID, g.Matches, func(r *models.Room) {
		r.JudgingDone = true
		r.JudgingFailed = true
		r.JudgingError = reason
		r.UpdatedAt = at
	})
}

func (s *MemoryStore) SeatPlayer(_ context.Context, id string, slot models.Slot, playerID, name string, at time.Time) (bool, error) {
	match := func(r *models.Room) bool {
		return r.Status == models.StatusWaiting && r.PlayerID(slot) == "" && r.PlayerID(slot.Other()) != playerID
	}
	return s.update(id, match, func(r *models.Room) {
		if slot == models.SlotA {
			r.PlayerAID, r.PlayerAName, r.PlayerAReady = playerID, name, false
		} else {
			r.PlayerBID, r.PlayerBName, r.PlayerBReady = playerID, name, false
		}
		r.UpdatedAt = at
	})
}

func (s *MemoryStore) ClearSeat(_ context.Context, id string, slot models.Slot, playerID string, at time.Time) (bool, error) {
	match := func(r *models.Room) bool {
		return r.Status == models.StatusWaiting && r.PlayerID(slot) == playerID
	}
	return s.update(id, match, func(r *models.Room) {
		if slot == models.SlotA {
			r.PlayerAID, r.PlayerAName, r.PlayerAReady = "", "", false
		} else {
			r.PlayerBID, r.PlayerBName, r.PlayerBReady = "", "", false
		}
		r.UpdatedAt = at
	})
}

func (s *MemoryStore) SetReady(_ context.Context, id string, slot models.Slot, playerID string, ready bool, at time.Time) (bool, error) {
	match := func(r *models.Room) bool {
		return r.Status == models.StatusWaiting && r.PlayerID(slot) == playerID
	}
	return s.update(id, match, func(r *models.Room) {
		if slot == models.SlotA {
			r.PlayerAReady = ready
		} else {
			r.PlayerBReady = ready
		}
		r.UpdatedAt = at
	})
}

func (s *MemoryStore) SetVote(_ context.Context, id string, slot models.Slot, vote models.Side, at time.Time) (bool, error) {
	match := func(r *models.Room) bool {
		return r.Status == models.StatusSideSelection && r.CurrentPhase == models.PhaseSideSelection &&
			r.PlayerASide == models.SideNone && r.PlayerBSide == models.SideNone
	}
	return s.update(id, match, func(r *models.Room) {
		if slot == models.SlotA {
			r.PlayerAVote = vote
		} else {
			r.PlayerBVote = vote
		}
		r.UpdatedAt = at
	})
}

func (s *MemoryStore) InsertMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *MemoryStore) ListPhaseMessages(_ context.Context, roomID string, phase models.Phase) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.RoomID == roomID && m.Phase == phase {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SaveVerdict(_ context.Context, v *models.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := v.RoomID + "/" + string(v.Phase)
	if _, ok := s.verdicts[key]; ok {
		return models.ErrVerdictExists
	}
	s.verdicts[key] = *v
	return nil
}

// Verdict returns the stored verdict for a room phase
func (s *MemoryStore) Verdict(roomID string, phase models.Phase) (models.Verdict, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verdicts[roomID+"/"+string(phase)]
	return v, ok
}

func (s *MemoryStore) update(id string, match func(*models.Room) bool, apply func(*models.Room)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || !match(r) {
		return false, nil
	}
	apply(r)
	return true, nil
}
