package server

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"tagboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

const eventHeartbeatInterval = 25 * time.Second

// GetMyDmails handles GET /api/dmails
func (s *Server) GetMyDmails(c *fiber.Ctx) error {
	page := pageParams(c, 20)

	dmails, err := s.dmailService.ListForOwner(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(dmails)
}

// GetForumTopic handles GET /api/forum_topics/:id
func (s *Server) GetForumTopic(c *fiber.Ctx) error {
	id, ok := idParam(c, "forum topic")
	if !ok {
		return nil
	}

	topic, err := s.forumService.GetTopic(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(topic)
}

// StreamEvents handles GET /api/events. It relays the caller's dmail
// notifications and workflow broadcasts as server-sent events.
func (s *Server) StreamEvents(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewValidationError("Event stream requires Redis"))
	}

	base := s.streams
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)

	messages := make(chan string, 16)
	err := s.notifier.Subscribe(ctx, currentUserID(c), func(_, payload string) {
		select {
		case messages <- payload:
		default:
			// Slow consumers drop events rather than block the subscriber.
		}
	})
	if err != nil {
		cancel()
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewInternalError(err))
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(eventHeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-messages:
				if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})

	return nil
}
