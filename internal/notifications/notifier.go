// Package notifications publishes workflow events to Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"tagboard/internal/cache"
	"tagboard/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event types published by the application.
const (
	EventDmailReceived             = "dmail_received"
	EventBulkUpdateRequestCreated  = "bulk_update_request_created"
	EventBulkUpdateRequestApproved = "bulk_update_request_approved"
	EventBulkUpdateRequestRejected = "bulk_update_request_rejected"
	EventBulkUpdateRequestFailed   = "bulk_update_request_failed"
)

// Event is the JSON envelope written to every channel.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// BulkUpdateRequestPayload describes a request state change.
type BulkUpdateRequestPayload struct {
	ID           uint   `json:"id"`
	UserID       uint   `json:"user_id"`
	Status       string `json:"status"`
	ForumTopicID *uint  `json:"forum_topic_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// DmailPayload announces a new private message.
type DmailPayload struct {
	ID     uint   `json:"id"`
	FromID uint   `json:"from_id"`
	Title  string `json:"title"`
}

// Notifier provides helpers to publish notifications into Redis channels.
// A nil client turns every publish into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Encode wraps payload in an Event and marshals it.
func Encode(eventType string, payload interface{}) (string, error) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return string(data), nil
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, eventType string, payload interface{}) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	msg, err := Encode(eventType, payload)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, cache.UserEventsChannel(userID), msg).Err()
}

// PublishBroadcast sends an event to all subscribers.
func (n *Notifier) PublishBroadcast(ctx context.Context, eventType string, payload interface{}) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	msg, err := Encode(eventType, payload)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, cache.BroadcastChannel, msg).Err()
}

// Subscribe listens on the user's channel and the broadcast channel until ctx
// is done, calling onMessage for every payload. It returns once the
// subscription is confirmed.
func (n *Notifier) Subscribe(ctx context.Context, userID uint, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, cache.UserEventsChannel(userID), cache.BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
