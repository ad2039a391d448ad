package models

import "time"

// Message is one append-only transcript entry. Spectator entries have no author slot
// and are never sent to the judge.
type Message struct {
	ID         string    `json:"id" bson:"_id"`
	RoomID     string    `json:"roomId" bson:"roomId"`
	AuthorID   string    `json:"authorId,omitempty" bson:"authorId,omitempty"`
	AuthorName string    `json:"authorName,omitempty" bson:"authorName,omitempty"`
	AuthorSlot Slot      `json:"authorSlot,omitempty" bson:"authorSlot,omitempty"`
	Phase      Phase     `json:"phase,omitempty" bson:"phase,omitempty"`
	Side       Side      `json:"side,omitempty" bson:"side,omitempty"`
	Content    string    `json:"content" bson:"content"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
