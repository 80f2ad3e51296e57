package service

import (
	"context"
	"log/slog"

	"tagboard/internal/models"
	"tagboard/internal/notifications"
	"tagboard/internal/repository"
)

// DmailService stores private messages and notifies recipients.
type DmailService struct {
	repo   repository.DmailRepository
	events UserEventPublisher
}

func NewDmailService(repo repository.DmailRepository, events UserEventPublisher) *DmailService {
	return &DmailService{repo: repo, events: events}
}

// Send stores the recipient's copy and, for messages between different
// users, the sender's copy.
func (s *DmailService) Send(ctx context.Context, fromID, toID uint, title, body string) error {
	if title == "" {
		return models.NewValidationError("Dmail title can't be blank")
	}
	received := &models.Dmail{OwnerID: toID, FromID: fromID, ToID: toID, Title: title, Body: body}
	if err := s.repo.Create(ctx, received); err != nil {
		return err
	}
	if fromID != toID {
		sent := &models.Dmail{OwnerID: fromID, FromID: fromID, ToID: toID, Title: title, Body: body, IsRead: true}
		if err := s.repo.Create(ctx, sent); err != nil {
			return err
		}
	}

	if s.events != nil {
		payload := notifications.DmailPayload{ID: received.ID, FromID: fromID, Title: title}
		if err := s.events.PublishUser(ctx, toID, notifications.EventDmailReceived, payload); err != nil {
			slog.WarnContext(ctx, "failed to publish dmail notification", "dmail_id", received.ID, "err", err)
		}
	}
	return nil
}

func (s *DmailService) ListForOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Dmail, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}
