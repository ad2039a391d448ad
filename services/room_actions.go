package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"debatearena/internal/debate"
	"debatearena/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxMessageLength = 2000
	MaxTopicLength   = 300
)

// Session identifies the caller of a room action. It is built per request and never
// shared between requests.
type Session struct {
	RoomID     string
	PlayerID   string
	PlayerName string
}

// ActionLimiter throttles how often one player may post
type ActionLimiter interface {
	Allow(ctx context.Context, roomID, playerID string) (bool, error)
}

// RoomService validates player actions and forwards phase changes they trigger to the
// phase machine.
type RoomService struct {
	store     Store
	machine   *PhaseMachine
	limiter   ActionLimiter
	publisher Publisher
	now       func() time.Time
}

// NewRoomService wires player actions. limiter and publisher may be nil.
func NewRoomService(store Store, machine *PhaseMachine, limiter ActionLimiter, publisher Publisher) *RoomService {
	if publisher == nil {
		publisher = debate.NoopPublisher{}
	}
	return &RoomService{
		store:     store,
		machine:   machine,
		limiter:   limiter,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateRoom opens a waiting room for topic
func (s *RoomService) CreateRoom(ctx context.Context, topic string) (*models.Room, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" || utf8.RuneCountInString(topic) > MaxTopicLength {
		return nil, fmt.Errorf("%w: topic must be 1-%d characters", ErrInvalidInput, MaxTopicLength)
	}
	room := models.NewRoom(uuid.NewString(), topic, models.Stamp(s.now()))
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	log.Info().Str("roomId", room.ID).Str("topic", topic).Msg("Room created")
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.store.GetRoom(ctx, roomID)
}

// CurrentTurn returns the room together with the speaker schedule at this instant
func (s *RoomService) CurrentTurn(ctx context.Context, roomID string) (*models.Room, Turn, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, Turn{}, err
	}
	return room, RoomTurn(room, s.now()), nil
}

// JoinRoom seats the caller in the first free slot. Joining a room the caller already
// sits in returns the room unchanged.
func (s *RoomService) JoinRoom(ctx context.Context, sess Session) (*models.Room, error) {
	if sess.PlayerID == "" {
		return nil, ErrNotSeated
	}
	// A lost race for a slot is retried once against the fresh room.
	for attempt := 0; attempt < 2; attempt++ {
		room, err := s.store.GetRoom(ctx, sess.RoomID)
		if err != nil {
			return nil, err
		}
		if room.SlotOf(sess.PlayerID) != models.SlotNone {
			return room, nil
		}
		if room.Status != models.StatusWaiting {
			return nil, fmt.Errorf("%w: room is %s", ErrInvalidAction, room.Status)
		}
		slot := models.SlotA
		if room.PlayerAID != "" {
			slot = models.SlotB
		}
		if room.PlayerID(slot) != "" {
			return nil, ErrRoomFull
		}
		ok, err := s.store.SeatPlayer(ctx, room.ID, slot, sess.PlayerID, sess.PlayerName, models.Stamp(s.now()))
		if err != nil {
			return nil, fmt.Errorf("seat player: %w", err)
		}
		if ok {
			log.Info().Str("roomId", room.ID).Str("playerId", sess.PlayerID).Str("slot", string(slot)).Msg("Player joined")
			return s.afterAction(ctx, room.ID, debate.EventPlayerJoined)
		}
	}
	return nil, ErrRoomFull
}

// SetReady toggles the caller's readiness. When both parties are ready the game starts.
func (s *RoomService) SetReady(ctx context.Context, sess Session, ready bool) (*models.Room, error) {
	room, slot, err := s.seated(ctx, sess)
	if err != nil {
		return nil, err
	}
	if room.Status != models.StatusWaiting {
		return nil, fmt.Errorf("%w: room is %s", ErrInvalidAction, room.Status)
	}
	ok, err := s.store.SetReady(ctx, room.ID, slot, sess.PlayerID, ready, models.Stamp(s.now()))
	if err != nil {
		return nil, fmt.Errorf("set ready: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: room changed, try again", ErrInvalidAction)
	}

	room, err = s.afterAction(ctx, room.ID, debate.EventPlayerReady)
	if err != nil {
		return nil, err
	}
	if ready && room.BothReady() {
		if _, err := s.machine.StartGame(ctx, room); err != nil {
			return nil, err
		}
		return s.store.GetRoom(ctx, room.ID)
	}
	return room, nil
}

// CastVote records the caller's side preference. Once both preferences are in, sides are
// resolved immediately instead of waiting for the deadline.
func (s *RoomService) CastVote(ctx context.Context, sess Session, side models.Side) (*models.Room, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: side must be pro or con", ErrInvalidInput)
	}
	room, slot, err := s.seated(ctx, sess)
	if err != nil {
		return nil, err
	}
	if room.Status != models.StatusSideSelection || room.CurrentPhase != models.PhaseSideSelection || room.SidesAssigned() {
		return nil, fmt.Errorf("%w: side selection is closed", ErrInvalidAction)
	}
	ok, err := s.store.SetVote(ctx, room.ID, slot, side, models.Stamp(s.now()))
	if err != nil {
		return nil, fmt.Errorf("set vote: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: side selection is closed", ErrInvalidAction)
	}

	room, err = s.afterAction(ctx, room.ID, debate.EventVoteCast)
	if err != nil {
		return nil, err
	}
	if room.PlayerAVote.Valid() && room.PlayerBVote.Valid() {
		if _, err := s.machine.FinalizeSides(ctx, room); err != nil {
			return nil, err
		}
		return s.store.GetRoom(ctx, room.ID)
	}
	return room, nil
}

// Leave frees the caller's seat. Only allowed before the game starts.
func (s *RoomService) Leave(ctx context.Context, sess Session) (*models.Room, error) {
	room, slot, err := s.seated(ctx, sess)
	if err != nil {
		return nil, err
	}
	if room.Status != models.StatusWaiting {
		return nil, fmt.Errorf("%w: cannot leave a started game", ErrInvalidAction)
	}
	ok, err := s.store.ClearSeat(ctx, room.ID, slot, sess.PlayerID, models.Stamp(s.now()))
	if err != nil {
		return nil, fmt.Errorf("clear seat: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: room changed, try again", ErrInvalidAction)
	}
	log.Info().Str("roomId", room.ID).Str("playerId", sess.PlayerID).Msg("Player left")
	return s.afterAction(ctx, room.ID, debate.EventPlayerLeft)
}

// PostMessage appends to the transcript. A seated party may only speak during its own
// window of an argument round; anyone else posts as a spectator at any time.
func (s *RoomService) PostMessage(ctx context.Context, sess Session, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, MaxMessageLength)
	}

	room, err := s.store.GetRoom(ctx, sess.RoomID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	slot := room.SlotOf(sess.PlayerID)
	if slot != models.SlotNone {
		if room.Status != models.StatusDebating || !room.CurrentPhase.IsArgument() {
			return nil, fmt.Errorf("%w: no argument round is open", ErrInvalidAction)
		}
		if turn := RoomTurn(room, now); turn.Speaker != speakerFor(slot) {
			return nil, fmt.Errorf("%w: it is not your turn (%s)", ErrInvalidAction, turn.Speaker)
		}
	}

	if s.limiter != nil && sess.PlayerID != "" {
		allowed, err := s.limiter.Allow(ctx, room.ID, sess.PlayerID)
		if err != nil {
			log.Warn().Err(err).Str("roomId", room.ID).Msg("Rate limiter unavailable, allowing message")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		RoomID:     room.ID,
		AuthorID:   sess.PlayerID,
		AuthorName: sess.PlayerName,
		AuthorSlot: slot,
		Phase:      room.CurrentPhase,
		Side:       room.Side(slot),
		Content:    content,
		CreatedAt:  models.Stamp(now),
	}
	if slot == models.SlotNone {
		msg.AuthorID = ""
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	s.publish(ctx, room.ID, debate.EventMessagePosted, debate.MessagePayload{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		AuthorName: msg.AuthorName,
		AuthorSlot: string(msg.AuthorSlot),
		Phase:      string(msg.Phase),
		Side:       string(msg.Side),
		Content:    msg.Content,
	})
	return msg, nil
}

func (s *RoomService) seated(ctx context.Context, sess Session) (*models.Room, models.Slot, error) {
	room, err := s.store.GetRoom(ctx, sess.RoomID)
	if err != nil {
		return nil, models.SlotNone, err
	}
	slot := room.SlotOf(sess.PlayerID)
	if slot == models.SlotNone {
		return nil, models.SlotNone, ErrNotSeated
	}
	return room, slot, nil
}

func (s *RoomService) afterAction(ctx context.Context, roomID, eventType string) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, roomID, eventType, debate.RoomSnapshot(room))
	return room, nil
}

func (s *RoomService) publish(ctx context.Context, roomID, eventType string, payload interface{}) {
	event, err := debate.NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("roomId", roomID).Msg("Failed to build event")
		return
	}
	if err := s.publisher.Publish(ctx, roomID, event); err != nil {
		log.Warn().Err(err).Str("roomId", roomID).Str("event", eventType).Msg("Failed to publish event")
	}
}
