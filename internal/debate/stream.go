package debate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultStreamMaxLen = 1000

// StreamKey is the Redis Stream holding one room's events
func StreamKey(roomID string) string {
	return fmt.Sprintf("room:%s:events", roomID)
}

// StreamPublisher appends room events to per-room Redis Streams. Clients catch up by
// reading the stream from the last id they saw.
type StreamPublisher struct {
	rdb    redis.Cmdable
	maxLen int64
}

// NewStreamPublisher creates a publisher that trims each stream to roughly maxLen entries
func NewStreamPublisher(rdb redis.Cmdable, maxLen int64) *StreamPublisher {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &StreamPublisher{rdb: rdb, maxLen: maxLen}
}

// Publish adds an event to the room's stream
func (p *StreamPublisher) Publish(ctx context.Context, roomID string, event *Event) error {
	if p == nil || p.rdb == nil {
		return errors.New("Redis client not available")
	}

	eventData, err := MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Add to stream with MAXLEN to bound history
	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(roomID),
		Values: map[string]interface{}{
			"type": event.Type,
			"data": eventData,
		},
		MaxLen: p.maxLen,
		Approx: true,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	event.ID = id
	return nil
}

// Since returns up to count events recorded after afterID. An empty afterID reads from
// the start of the retained history.
func (p *StreamPublisher) Since(ctx context.Context, roomID, afterID string, count int64) ([]*Event, error) {
	if p == nil || p.rdb == nil {
		return nil, errors.New("Redis client not available")
	}
	start := "-"
	if afterID != "" {
		start = "(" + afterID
	}
	messages, err := p.rdb.XRangeN(ctx, StreamKey(roomID), start, "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	events := make([]*Event, 0, len(messages))
	for _, message := range messages {
		event, err := decodeStreamMessage(message)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeStreamMessage(message redis.XMessage) (*Event, error) {
	eventData, ok := message.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid message format: missing data field")
	}
	event, err := UnmarshalEvent(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	event.ID = message.ID
	return event, nil
}

// NoopPublisher drops every event. Used when no Redis is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, *Event) error { return nil }
