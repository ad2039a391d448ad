package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debatearena/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RoomsCollection    = "rooms"
	MessagesCollection = "messages"
	VerdictsCollection = "verdicts"
)

// absent matches a field that is missing, null or empty
var absent = bson.M{"$in": bson.A{nil, ""}}

// MongoStore persists rooms, transcripts and verdicts in MongoDB. Every phase change is an
// UpdateOne whose filter carries the observed pre-state, so a stale writer matches nothing.
type MongoStore struct {
	rooms    *mongo.Collection
	messages *mongo.Collection
	verdicts *mongo.Collection
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{
		rooms:    database.Collection(RoomsCollection),
		messages: database.Collection(MessagesCollection),
		verdicts: database.Collection(VerdictsCollection),
	}
}

// EnsureIndexes creates the indexes the store relies on, including the one-verdict-per-phase
// unique index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.rooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	}); err != nil {
		return fmt.Errorf("rooms index: %w", err)
	}
	if _, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "phase", Value: 1}, {Key: "createdAt", Value: 1}},
	}); err != nil {
		return fmt.Errorf("messages index: %w", err)
	}
	if _, err := s.verdicts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}, {Key: "phase", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("verdicts index: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateRoom(ctx context.Context, room *models.Room) error {
	_, err := s.rooms.InsertOne(ctx, room)
	return err
}

func (s *MongoStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := s.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (s *MongoStore) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	filter := bson.M{
		"status":       bson.M{"$in": bson.A{models.StatusSideSelection, models.StatusDebating}},
		"currentPhase": bson.M{"$nin": bson.A{nil, ""}},
	}
	cursor, err := s.rooms.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []models.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *MongoStore) TransitionRoom(ctx context.Context, id string, t *models.Transition) (bool, error) {
	return s.updateRoom(ctx, transitionFilter(id, t), transitionUpdate(t))
}

func (s *MongoStore) ApplyDamage(ctx context.Context, g models.JudgingGuard, loser models.Side, damage int, at time.Time) (bool, error) {
	return s.updateRoom(ctx, judgingFilter(g), damagePipeline(loser, damage, at))
}

func (s *MongoStore) MarkJudgingFailed(ctx context.Context, g models.JudgingGuard, reason string, at time.Time) (bool, error) {
	update := bson.M{"$set": bson.M{
		"judgingDone":   true,
		"judgingFailed": true,
		"judgingError":  reason,
		"updatedAt":     at,
	}}
	return s.updateRoom(ctx, judgingFilter(g), update)
}

func (s *MongoStore) SeatPlayer(ctx context.Context, id string, slot models.Slot, playerID, name string, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":                         id,
		"status":                      models.StatusWaiting,
		slotField(slot, "Id"):         absent,
		slotField(slot.Other(), "Id"): bson.M{"$ne": playerID},
	}
	update := bson.M{"$set": bson.M{
		slotField(slot, "Id"):    playerID,
		slotField(slot, "Name"):  name,
		slotField(slot, "Ready"): false,
		"updatedAt":              at,
	}}
	return s.updateRoom(ctx, filter, update)
}

func (s *MongoStore) ClearSeat(ctx context.Context, id string, slot models.Slot, playerID string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.StatusWaiting, slotField(slot, "Id"): playerID}
	update := bson.M{
		"$set":   bson.M{slotField(slot, "Ready"): false, "updatedAt": at},
		"$unset": bson.M{slotField(slot, "Id"): "", slotField(slot, "Name"): ""},
	}
	return s.updateRoom(ctx, filter, update)
}

func (s *MongoStore) SetReady(ctx context.Context, id string, slot models.Slot, playerID string, ready bool, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.StatusWaiting, slotField(slot, "Id"): playerID}
	update := bson.M{"$set": bson.M{slotField(slot, "Ready"): ready, "updatedAt": at}}
	return s.updateRoom(ctx, filter, update)
}

func (s *MongoStore) SetVote(ctx context.Context, id string, slot models.Slot, vote models.Side, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":          id,
		"status":       models.StatusSideSelection,
		"currentPhase": models.PhaseSideSelection,
		"playerASide":  absent,
		"playerBSide":  absent,
	}
	update := bson.M{"$set": bson.M{slotField(slot, "Vote"): vote, "updatedAt": at}}
	return s.updateRoom(ctx, filter, update)
}

func (s *MongoStore) InsertMessage(ctx context.Context, m *models.Message) error {
	_, err := s.messages.InsertOne(ctx, m)
	return err
}

func (s *MongoStore) ListPhaseMessages(ctx context.Context, roomID string, phase models.Phase) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"roomId": roomID, "phase": phase}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *MongoStore) SaveVerdict(ctx context.Context, v *models.Verdict) error {
	_, err := s.verdicts.InsertOne(ctx, v)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrVerdictExists
	}
	return err
}

func (s *MongoStore) updateRoom(ctx context.Context, filter bson.M, update interface{}) (bool, error) {
	res, err := s.rooms.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// slotField maps a seat to its document field, e.g. (SlotB, "Ready") -> "playerBReady"
func slotField(slot models.Slot, suffix string) string {
	if slot == models.SlotB {
		return "playerB" + suffix
	}
	return "playerA" + suffix
}

func transitionFilter(id string, t *models.Transition) bson.M {
	filter := bson.M{"_id": id, "status": t.FromStatus}
	if t.FromPhase == models.PhaseNone {
		filter["currentPhase"] = absent
	} else {
		filter["currentPhase"] = t.FromPhase
	}
	if t.FromStart != nil {
		filter["phaseStartTime"] = *t.FromStart
	}
	if t.FromJudgingPhase != models.PhaseNone {
		filter["judgingPhase"] = t.FromJudgingPhase
	}
	if t.FromJudgingDone != nil {
		filter["judgingDone"] = *t.FromJudgingDone
	}
	if t.FromHealth != nil {
		filter["playerAHealth"] = t.FromHealth[0]
		filter["playerBHealth"] = t.FromHealth[1]
	}
	if t.RequireBothReady {
		filter["playerAId"] = bson.M{"$nin": bson.A{nil, ""}}
		filter["playerBId"] = bson.M{"$nin": bson.A{nil, ""}}
		filter["playerAReady"] = true
		filter["playerBReady"] = true
	}
	if t.RequireSidesUnset {
		filter["playerASide"] = absent
		filter["playerBSide"] = absent
	}
	return filter
}

func transitionUpdate(t *models.Transition) bson.M {
	set := bson.M{"status": t.ToStatus, "updatedAt": t.At}
	unset := bson.M{}

	if t.ToPhase == models.PhaseNone {
		unset["currentPhase"] = ""
		unset["phaseStartTime"] = ""
		unset["phaseDuration"] = ""
	} else {
		set["currentPhase"] = t.ToPhase
		set["phaseStartTime"] = t.Start
		set["phaseDuration"] = t.Duration
	}
	if t.SideA.Valid() && t.SideB.Valid() {
		set["playerASide"] = t.SideA
		set["playerBSide"] = t.SideB
		unset["playerAVote"] = ""
		unset["playerBVote"] = ""
	}
	if t.JudgingPhase != models.PhaseNone {
		set["judgingPhase"] = t.JudgingPhase
		set["judgingDone"] = false
		set["judgingFailed"] = false
	}
	if t.JudgingTimedOut {
		set["judgingDone"] = true
		set["judgingFailed"] = true
		set["judgingError"] = models.JudgingTimeoutReason
	} else if t.JudgingPhase != models.PhaseNone {
		unset["judgingError"] = ""
	}
	if t.ToStatus == models.StatusFinished {
		set["judgingDone"] = true
		if t.Winner != nil {
			set["winnerId"] = t.Winner.ID
			set["winnerName"] = t.Winner.Name
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func judgingFilter(g models.JudgingGuard) bson.M {
	return bson.M{
		"_id":          g.RoomID,
		"currentPhase": models.PhaseJudging,
		"judgingPhase": g.Phase,
		"judgingDone":  false,
	}
}

// damagePipeline lowers the health of whichever seat argues loser, floored at 0, and
// closes the judging window in the same write.
func damagePipeline(loser models.Side, damage int, at time.Time) mongo.Pipeline {
	health := func(slot models.Slot) bson.M {
		field := "$" + slotField(slot, "Health")
		return bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$" + slotField(slot, "Side"), string(loser)}},
			bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{field, damage}}}},
			field,
		}}
	}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "playerAHealth", Value: health(models.SlotA)},
			{Key: "playerBHealth", Value: health(models.SlotB)},
			{Key: "judgingDone", Value: true},
			{Key: "judgingFailed", Value: false},
			{Key: "updatedAt", Value: at},
		}}},
	}
}
