package service

import (
	"context"
	"time"

	"tagboard/internal/models"
	"tagboard/internal/script"
)

// Applier executes the directives of an approved request.
type Applier interface {
	Apply(ctx context.Context, req *models.BulkUpdateRequest, tokens []script.Token) error
}

// UserDirectory resolves the accounts that receive approval failure reports.
type UserDirectory interface {
	NotificationAdmins(ctx context.Context) ([]models.User, error)
}

// ForumThreads is the discussion thread store.
type ForumThreads interface {
	TopicExists(ctx context.Context, id uint) (bool, error)
	CreateTopic(ctx context.Context, creatorID uint, title, body string) (uint, error)
	CreatePost(ctx context.Context, topicID, creatorID uint, body string) error
}

// MessageSender delivers private messages.
type MessageSender interface {
	Send(ctx context.Context, fromID, toID uint, title, body string) error
}

// Locker serializes work on a key across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// EventPublisher fans workflow events out to subscribers.
type EventPublisher interface {
	PublishBroadcast(ctx context.Context, eventType string, payload interface{}) error
}

// UserEventPublisher delivers events to a single user.
type UserEventPublisher interface {
	PublishUser(ctx context.Context, userID uint, eventType string, payload interface{}) error
}
