package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tagboard/internal/cache"
	"tagboard/internal/models"
	"tagboard/internal/notifications"
	"tagboard/internal/observability"
	"tagboard/internal/repository"
	"tagboard/internal/script"
	"tagboard/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ApprovalFailedTitle is the subject of the admin report for a failed approval.
const ApprovalFailedTitle = "Bulk update request approval failed"

const defaultApprovalLockTTL = 10 * time.Minute

var (
	// ErrApprovalInProgress means another caller holds the approval lock.
	ErrApprovalInProgress = errors.New("bulk update request is already being processed")
	// ErrNotPending means the request already reached a terminal status.
	ErrNotPending = errors.New("bulk update request is not pending")
)

// ApprovalOutcome summarises what Approve did.
type ApprovalOutcome string

const (
	// ApprovalApplied means the script ran and the request is approved.
	ApprovalApplied ApprovalOutcome = "applied"
	// ApprovalFailed means the script failed; the request stays pending.
	ApprovalFailed ApprovalOutcome = "failed"
	// ApprovalSkipped means nothing ran, e.g. the request was not pending.
	ApprovalSkipped ApprovalOutcome = "skipped"
)

// ApprovalResult is returned by Approve in place of an error.
type ApprovalResult struct {
	Outcome     ApprovalOutcome `json:"outcome"`
	Compensated bool            `json:"compensated"`
	Err         error           `json:"-"`
}

// BulkUpdateRequestDeps wires the collaborators of BulkUpdateRequestService.
type BulkUpdateRequestDeps struct {
	Repo    repository.BulkUpdateRequestRepository
	Applier Applier
	Users   UserDirectory
	Forum   ForumThreads
	Mail    MessageSender
	Locker  Locker
	Events  EventPublisher
	LockTTL time.Duration
}

// BulkUpdateRequestService runs the pending -> approved | rejected workflow.
type BulkUpdateRequestService struct {
	repo    repository.BulkUpdateRequestRepository
	applier Applier
	users   UserDirectory
	forum   ForumThreads
	mail    MessageSender
	locker  Locker
	events  EventPublisher
	lockTTL time.Duration
	log     *observability.WorkflowLogger
}

func NewBulkUpdateRequestService(deps BulkUpdateRequestDeps) *BulkUpdateRequestService {
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = defaultApprovalLockTTL
	}
	locker := deps.Locker
	if locker == nil {
		locker = cache.NewLocker(nil)
	}
	return &BulkUpdateRequestService{
		repo:    deps.Repo,
		applier: deps.Applier,
		users:   deps.Users,
		forum:   deps.Forum,
		mail:    deps.Mail,
		locker:  locker,
		events:  deps.Events,
		lockTTL: ttl,
		log:     observability.NewWorkflowLogger(),
	}
}

// CreateBulkUpdateRequestInput carries the caller-supplied fields of a new request.
type CreateBulkUpdateRequestInput struct {
	UserID       uint
	Script       string
	Title        string
	Reason       string
	ForumTopicID *uint
}

// Create normalizes, validates and stores a new pending request, then links
// it to a forum thread. A linkage failure is returned alongside the stored
// request.
func (s *BulkUpdateRequestService) Create(ctx context.Context, in CreateBulkUpdateRequestInput, actorID uint) (*models.BulkUpdateRequest, error) {
	req := &models.BulkUpdateRequest{
		UserID:       in.UserID,
		Script:       in.Script,
		Title:        strings.TrimSpace(in.Title),
		Reason:       strings.TrimSpace(in.Reason),
		ForumTopicID: in.ForumTopicID,
		Status:       models.BulkUpdateRequestStatusPending,
	}
	if req.UserID == 0 {
		req.UserID = actorID
	}
	req.Script = script.Normalize(req.Script)

	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	if err := s.linkForumTopic(ctx, req); err != nil {
		return req, fmt.Errorf("link forum topic for bulk update request #%d: %w", req.ID, err)
	}

	s.publish(ctx, notifications.EventBulkUpdateRequestCreated, req, nil)
	return req, nil
}

func (s *BulkUpdateRequestService) validate(ctx context.Context, req *models.BulkUpdateRequest) error {
	fields, err := validation.ValidateBulkUpdateRequest(ctx, req, s.forum)
	if err != nil {
		return models.NewInternalError(err)
	}
	if len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

// linkForumTopic posts the composed body to the caller's thread or opens a
// new one and records its id.
func (s *BulkUpdateRequestService) linkForumTopic(ctx context.Context, req *models.BulkUpdateRequest) error {
	body, err := ComposeForumBody(req)
	if err != nil {
		return err
	}
	if req.ForumTopicID != nil {
		return s.forum.CreatePost(ctx, *req.ForumTopicID, req.UserID, body)
	}

	topicID, err := s.forum.CreateTopic(ctx, req.UserID, "[bulk] "+req.Title, body)
	if err != nil {
		return err
	}
	if err := s.repo.SetForumTopic(ctx, req.ID, topicID); err != nil {
		return err
	}
	req.ForumTopicID = &topicID
	return nil
}

// ComposeForumBody renders the script, the optional reason and a back-link.
func ComposeForumBody(req *models.BulkUpdateRequest) (string, error) {
	tokens, err := script.Tokenize(req.Script)
	if err != nil {
		return "", err
	}
	parts := []string{script.Render(tokens)}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		parts = append(parts, reason)
	}
	parts = append(parts, RequestLink(req.ID))
	return strings.Join(parts, "\n\n"), nil
}

// RequestLink is the back-link appended to forum posts.
func RequestLink(id uint) string {
	return fmt.Sprintf("Link to request: /bulk_update_requests?search[id]=%d", id)
}

// UpdateBulkUpdateRequestInput carries editable fields. Nil fields are left as is.
type UpdateBulkUpdateRequestInput struct {
	Script       *string
	ForumTopicID *uint
	Title        string
}

// Update edits a pending request on behalf of actor. It holds the approval
// lock so an edit never lands between Apply and the status change.
func (s *BulkUpdateRequestService) Update(ctx context.Context, id uint, in UpdateBulkUpdateRequestInput, actor *models.User) (*models.BulkUpdateRequest, error) {
	release, ok, err := s.locker.Acquire(ctx, cache.ApprovalLockKey(id), s.lockTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, models.NewConflictError(ErrApprovalInProgress.Error())
	}
	defer release()

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.EditableBy(actor) {
		return nil, models.NewUnauthorizedError("You cannot edit this bulk update request")
	}
	if !req.IsPending() {
		return nil, models.NewValidationError(fmt.Sprintf("Bulk update request #%d is %s and can no longer be edited", id, req.Status))
	}

	if in.Script != nil {
		req.Script = *in.Script
	}
	if in.ForumTopicID != nil {
		req.ForumTopicID = in.ForumTopicID
	}
	req.Title = strings.TrimSpace(in.Title)
	req.Script = script.Normalize(req.Script)

	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *BulkUpdateRequestService) Get(ctx context.Context, id uint) (*models.BulkUpdateRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *BulkUpdateRequestService) Search(ctx context.Context, params repository.BulkUpdateRequestSearchParams, limit, offset int) ([]models.BulkUpdateRequest, int64, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// Approve applies the request script and marks it approved. It never
// returns an error: failures are reported to an admin and the linked
// thread, and the request stays pending so it can be approved again.
func (s *BulkUpdateRequestService) Approve(ctx context.Context, req *models.BulkUpdateRequest, approverID uint) ApprovalResult {
	ctx = observability.WithBulkUpdateRequest(observability.EnsureCorrelationID(ctx), req.ID)
	span, ctx := observability.NewSpan(ctx, "BulkUpdateRequestService.Approve")
	defer span.End()
	span.AddAttributes(attribute.Int64("bulk_update_request.id", int64(req.ID)))

	release, ok, err := s.locker.Acquire(ctx, cache.ApprovalLockKey(req.ID), s.lockTTL)
	if err != nil {
		span.SetError(err)
		return ApprovalResult{Outcome: ApprovalSkipped, Err: err}
	}
	if !ok {
		return ApprovalResult{Outcome: ApprovalSkipped, Err: ErrApprovalInProgress}
	}
	defer release()

	current, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		span.SetError(err)
		return ApprovalResult{Outcome: ApprovalSkipped, Err: err}
	}
	*req = *current
	if !req.IsPending() {
		return ApprovalResult{Outcome: ApprovalSkipped, Err: ErrNotPending}
	}

	if err := s.approve(ctx, req, approverID); err != nil {
		span.SetError(err)
		if errors.Is(err, ErrNotPending) {
			return ApprovalResult{Outcome: ApprovalSkipped, Err: err}
		}
		compensated := s.compensate(ctx, req, approverID, err)
		s.log.LogApprovalFailure(ctx, err, compensated)
		s.publish(ctx, notifications.EventBulkUpdateRequestFailed, req, err)
		return ApprovalResult{Outcome: ApprovalFailed, Compensated: compensated, Err: err}
	}

	s.log.LogTransition(ctx, string(models.BulkUpdateRequestStatusPending), string(models.BulkUpdateRequestStatusApproved), approverID)
	observability.RecordTransition(string(models.BulkUpdateRequestStatusPending), string(models.BulkUpdateRequestStatusApproved))
	s.publish(ctx, notifications.EventBulkUpdateRequestApproved, req, nil)
	return ApprovalResult{Outcome: ApprovalApplied}
}

// approve runs apply, the approval notice and the status change. A panic
// in any of them is returned as a *PanicError.
func (s *BulkUpdateRequestService) approve(ctx context.Context, req *models.BulkUpdateRequest, approverID uint) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = recoverPanic(v)
		}
	}()

	tokens, err := script.Tokenize(req.Script)
	if err != nil {
		return err
	}
	if err := s.applier.Apply(ctx, req, tokens); err != nil {
		return err
	}
	if req.ForumTopicID != nil {
		notice := fmt.Sprintf("The bulk update request #%d has been approved.", req.ID)
		if err := s.forum.CreatePost(ctx, *req.ForumTopicID, approverID, notice); err != nil {
			return err
		}
	}

	won, err := s.repo.TransitionStatus(ctx, req.ID, models.BulkUpdateRequestStatusPending, models.BulkUpdateRequestStatusApproved)
	if err != nil {
		return err
	}
	if !won {
		return ErrNotPending
	}
	req.Status = models.BulkUpdateRequestStatusApproved
	return nil
}

// compensate reports a failed approval. It returns true when at least one
// admin received the diagnostic. The thread note is best effort.
func (s *BulkUpdateRequestService) compensate(ctx context.Context, req *models.BulkUpdateRequest, actorID uint, cause error) bool {
	diag := NewDiagnostic(cause)
	observability.RecordApprovalFailure(diag.Kind)

	delivered := false
	admins, err := s.users.NotificationAdmins(ctx)
	switch {
	case err != nil:
		s.log.LogCompensationError(ctx, "resolve_admins", err)
	case len(admins) == 0:
		s.log.LogCompensationError(ctx, "resolve_admins", errors.New("no admin account to notify"))
	}
	body := diag.Body(req.ID)
	for _, admin := range admins {
		if err := s.mail.Send(ctx, admin.ID, admin.ID, ApprovalFailedTitle, body); err != nil {
			s.log.LogCompensationError(ctx, "dmail", err)
			continue
		}
		delivered = true
	}

	if req.ForumTopicID != nil {
		note := fmt.Sprintf("Bulk update request #%d failed: %s", req.ID, diag.Message)
		if err := s.forum.CreatePost(ctx, *req.ForumTopicID, actorID, note); err != nil {
			s.log.LogCompensationError(ctx, "forum_post", err)
		}
	}
	return delivered
}

// Reject marks a pending request rejected after announcing it on the
// linked thread. Errors propagate to the caller.
func (s *BulkUpdateRequestService) Reject(ctx context.Context, req *models.BulkUpdateRequest, reviewerID uint) (err error) {
	ctx = observability.WithBulkUpdateRequest(observability.EnsureCorrelationID(ctx), req.ID)
	span, ctx := observability.NewSpan(ctx, "BulkUpdateRequestService.Reject")
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.End()
	}()
	span.AddAttributes(attribute.Int64("bulk_update_request.id", int64(req.ID)))

	release, ok, err := s.locker.Acquire(ctx, cache.ApprovalLockKey(req.ID), s.lockTTL)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !ok {
		return models.NewConflictError(ErrApprovalInProgress.Error())
	}
	defer release()

	current, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}
	*req = *current
	if !req.IsPending() {
		return models.NewValidationError(fmt.Sprintf("Bulk update request #%d is %s and cannot be rejected", req.ID, req.Status))
	}

	if req.ForumTopicID != nil {
		notice := fmt.Sprintf("The bulk update request #%d has been rejected.", req.ID)
		if err := s.forum.CreatePost(ctx, *req.ForumTopicID, reviewerID, notice); err != nil {
			return err
		}
	}

	won, err := s.repo.TransitionStatus(ctx, req.ID, models.BulkUpdateRequestStatusPending, models.BulkUpdateRequestStatusRejected)
	if err != nil {
		return err
	}
	if !won {
		return models.NewConflictError(ErrNotPending.Error())
	}
	req.Status = models.BulkUpdateRequestStatusRejected

	s.log.LogTransition(ctx, string(models.BulkUpdateRequestStatusPending), string(models.BulkUpdateRequestStatusRejected), reviewerID)
	observability.RecordTransition(string(models.BulkUpdateRequestStatusPending), string(models.BulkUpdateRequestStatusRejected))
	s.publish(ctx, notifications.EventBulkUpdateRequestRejected, req, nil)
	return nil
}

func (s *BulkUpdateRequestService) publish(ctx context.Context, eventType string, req *models.BulkUpdateRequest, cause error) {
	if s.events == nil {
		return
	}
	payload := notifications.BulkUpdateRequestPayload{
		ID:           req.ID,
		UserID:       req.UserID,
		Status:       string(req.Status),
		ForumTopicID: req.ForumTopicID,
	}
	if cause != nil {
		payload.Error = cause.Error()
	}
	if err := s.events.PublishBroadcast(ctx, eventType, payload); err != nil {
		slog.WarnContext(ctx, "failed to publish workflow event",
			"event", eventType,
			"bulk_update_request_id", req.ID,
			"error", err,
		)
	}
}
