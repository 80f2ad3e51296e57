package server

import (
	"tagboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

const maxPageLimit = 100

// page is a limit/offset window read from the query string.
type page struct {
	Limit  int
	Offset int
}

// pageParams reads limit plus either offset or a 1-based page number.
// Out of range values are clamped rather than rejected.
func pageParams(c *fiber.Ctx, defaultLimit int) page {
	limit := c.QueryInt("limit", defaultLimit)
	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	offset := c.QueryInt("offset", 0)
	if n := c.QueryInt("page", 0); n > 1 {
		offset = (n - 1) * limit
	}
	return page{Limit: limit, Offset: max(offset, 0)}
}

// idParam reads the :id route parameter. On a missing, malformed or zero id
// it answers 400 naming what the id was for, and reports false; the handler
// should then return nil.
func idParam(c *fiber.Ctx, what string) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+what+" ID"))
		return 0, false
	}
	return uint(id), true
}

// mapServiceError picks the HTTP status for an error returned by a service.
func mapServiceError(err error) int {
	return models.StatusForError(err)
}

// currentUserID returns the authenticated user id set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}
