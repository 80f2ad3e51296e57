package server

import (
	"errors"
	"strconv"
	"strings"

	"tagboard/internal/featureflags"
	"tagboard/internal/models"
	"tagboard/internal/repository"
	"tagboard/internal/script"
	"tagboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// bulkUpdateRequestView is the JSON shape of a single request.
type bulkUpdateRequestView struct {
	*models.BulkUpdateRequest
	ScriptWithLinks string `json:"script_with_links"`
}

// scriptWithLinks renders the stored script in canonical form, where every
// tag is a [[wiki]] link. Unparseable scripts are returned as stored.
func scriptWithLinks(text string) string {
	tokens, err := script.Tokenize(text)
	if err != nil {
		return text
	}
	return script.Render(tokens)
}

func newBulkUpdateRequestView(req *models.BulkUpdateRequest) bulkUpdateRequestView {
	return bulkUpdateRequestView{BulkUpdateRequest: req, ScriptWithLinks: scriptWithLinks(req.Script)}
}

// parseSearchParams reads search[id], search[user_id], search[status] and
// search[forum_topic_id].
func parseSearchParams(c *fiber.Ctx) (repository.BulkUpdateRequestSearchParams, error) {
	params := repository.BulkUpdateRequestSearchParams{
		IDs: repository.ParseIDList(c.Query("search[id]")),
	}

	if raw := strings.TrimSpace(c.Query("search[user_id]")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return params, models.NewValidationError("Invalid search[user_id]")
		}
		params.UserID = uint(id)
	}

	if raw := strings.TrimSpace(c.Query("search[forum_topic_id]")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return params, models.NewValidationError("Invalid search[forum_topic_id]")
		}
		params.ForumTopicID = uint(id)
	}

	if raw := strings.ToLower(strings.TrimSpace(c.Query("search[status]"))); raw != "" {
		status := models.BulkUpdateRequestStatus(raw)
		if !status.Valid() {
			return params, models.NewValidationError("Invalid search[status]")
		}
		params.Status = status
	}

	return params, nil
}

// ListBulkUpdateRequests handles GET /api/bulk_update_requests
func (s *Server) ListBulkUpdateRequests(c *fiber.Ctx) error {
	params, err := parseSearchParams(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	page := pageParams(c, 20)

	requests, total, err := s.bulkService.Search(c.UserContext(), params, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{
		"bulk_update_requests": requests,
		"total":                total,
		"limit":                page.Limit,
		"offset":               page.Offset,
	})
}

// GetBulkUpdateRequest handles GET /api/bulk_update_requests/:id
func (s *Server) GetBulkUpdateRequest(c *fiber.Ctx) error {
	id, ok := idParam(c, "bulk update request")
	if !ok {
		return nil
	}

	req, err := s.bulkService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(newBulkUpdateRequestView(req))
}

// CreateBulkUpdateRequest handles POST /api/bulk_update_requests
func (s *Server) CreateBulkUpdateRequest(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var body struct {
		Script       string `json:"script"`
		Title        string `json:"title"`
		Reason       string `json:"reason"`
		ForumTopicID *uint  `json:"forum_topic_id"`
		UserID       uint   `json:"user_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Only admins may file a request on behalf of another user.
	ownerID := userID
	if body.UserID != 0 && body.UserID != userID {
		actor, err := s.userService.GetUserByID(ctx, userID)
		if err != nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
		if !actor.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Only admins can create requests for other users"))
		}
		ownerID = body.UserID
	}

	req, err := s.bulkService.Create(ctx, service.CreateBulkUpdateRequestInput{
		UserID:       ownerID,
		Script:       body.Script,
		Title:        body.Title,
		Reason:       body.Reason,
		ForumTopicID: body.ForumTopicID,
	}, userID)
	if err != nil {
		if req == nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
		// The request is stored but has no forum thread.
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"bulk_update_request": newBulkUpdateRequestView(req),
			"warning":             err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"bulk_update_request": newBulkUpdateRequestView(req),
	})
}

// UpdateBulkUpdateRequest handles PUT /api/bulk_update_requests/:id
func (s *Server) UpdateBulkUpdateRequest(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, ok := idParam(c, "bulk update request")
	if !ok {
		return nil
	}

	var body struct {
		Script       *string `json:"script"`
		ForumTopicID *uint   `json:"forum_topic_id"`
		Title        string  `json:"title"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	actor, err := s.userService.GetUserByID(ctx, currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	req, err := s.bulkService.Update(ctx, id, service.UpdateBulkUpdateRequestInput{
		Script:       body.Script,
		ForumTopicID: body.ForumTopicID,
		Title:        body.Title,
	}, actor)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(newBulkUpdateRequestView(req))
}

// ApproveBulkUpdateRequest handles POST /api/admin/bulk_update_requests/:id/approve
func (s *Server) ApproveBulkUpdateRequest(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)
	id, ok := idParam(c, "bulk update request")
	if !ok {
		return nil
	}

	if !s.approvalsEnabled(userID) {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewValidationError("Bulk update approvals are disabled"))
	}

	req, err := s.bulkService.Get(ctx, id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	result := s.bulkService.Approve(ctx, req, userID)

	status := fiber.StatusOK
	response := fiber.Map{
		"bulk_update_request": newBulkUpdateRequestView(req),
		"outcome":             result.Outcome,
		"compensated":         result.Compensated,
	}
	if result.Err != nil {
		response["error"] = result.Err.Error()
	}

	switch result.Outcome {
	case service.ApprovalFailed:
		status = fiber.StatusUnprocessableEntity
	case service.ApprovalSkipped:
		status = fiber.StatusConflict
		if !errors.Is(result.Err, service.ErrNotPending) && !errors.Is(result.Err, service.ErrApprovalInProgress) {
			status = mapServiceError(result.Err)
		}
	}

	return c.Status(status).JSON(response)
}

// RejectBulkUpdateRequest handles POST /api/admin/bulk_update_requests/:id/reject
func (s *Server) RejectBulkUpdateRequest(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, ok := idParam(c, "bulk update request")
	if !ok {
		return nil
	}

	req, err := s.bulkService.Get(ctx, id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	if err := s.bulkService.Reject(ctx, req, currentUserID(c)); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(newBulkUpdateRequestView(req))
}

// approvalsEnabled reports whether the approve endpoint is open for userID.
func (s *Server) approvalsEnabled(userID uint) bool {
	return s.featureFlags.Enabled(featureflags.BulkUpdateApprovals, userID)
}
