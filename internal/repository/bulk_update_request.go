package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tagboard/internal/models"
	"tagboard/internal/observability"

	"gorm.io/gorm"
)

// BulkUpdateRequestSearchParams filters bulk update request listings. Zero
// values are ignored.
type BulkUpdateRequestSearchParams struct {
	IDs          []uint
	UserID       uint
	Status       models.BulkUpdateRequestStatus
	ForumTopicID uint
}

// ParseIDList parses a comma separated id list such as "1,2,3". Entries that
// are not positive integers are skipped.
func ParseIDList(raw string) []uint {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

// BulkUpdateRequestSearch returns a gorm scope applying params.
func BulkUpdateRequestSearch(params BulkUpdateRequestSearchParams) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(params.IDs) > 0 {
			db = db.Where("id IN ?", params.IDs)
		}
		if params.UserID != 0 {
			db = db.Where("user_id = ?", params.UserID)
		}
		if params.Status != "" {
			db = db.Where("status = ?", params.Status)
		}
		if params.ForumTopicID != 0 {
			db = db.Where("forum_topic_id = ?", params.ForumTopicID)
		}
		return db
	}
}

// BulkUpdateRequestRepository defines persistence operations for bulk update requests.
type BulkUpdateRequestRepository interface {
	Create(ctx context.Context, req *models.BulkUpdateRequest) error
	GetByID(ctx context.Context, id uint) (*models.BulkUpdateRequest, error)
	Update(ctx context.Context, req *models.BulkUpdateRequest) error
	SetForumTopic(ctx context.Context, id, topicID uint) error
	TransitionStatus(ctx context.Context, id uint, from, to models.BulkUpdateRequestStatus) (bool, error)
	Search(ctx context.Context, params BulkUpdateRequestSearchParams, limit, offset int) ([]models.BulkUpdateRequest, int64, error)
}

type bulkUpdateRequestRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewBulkUpdateRequestRepository returns a new BulkUpdateRequestRepository implementation.
func NewBulkUpdateRequestRepository(db *gorm.DB) BulkUpdateRequestRepository {
	return &bulkUpdateRequestRepository{
		db:  db,
		log: observability.NewRepoLogger("bulk_update_requests"),
	}
}

func (r *bulkUpdateRequestRepository) Create(ctx context.Context, req *models.BulkUpdateRequest) (err error) {
	ctx, done := traceQuery(ctx, "Create", "bulk_update_requests")
	defer func() { done(err) }()

	if err = r.db.WithContext(ctx).Create(req).Error; err != nil {
		r.log.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Done(ctx, "create", "id", req.ID, "user_id", req.UserID)
	return nil
}

func (r *bulkUpdateRequestRepository) GetByID(ctx context.Context, id uint) (_ *models.BulkUpdateRequest, err error) {
	ctx, done := traceQuery(ctx, "GetByID", "bulk_update_requests")
	defer func() { done(err) }()

	var req models.BulkUpdateRequest
	if err = r.db.WithContext(ctx).Preload("User").First(&req, id).Error; err != nil {
		return nil, lookupError(err, "BulkUpdateRequest", id)
	}
	return &req, nil
}

// Update persists the editable columns of a pending request. A request that
// has left pending is a conflict. Status only changes through
// TransitionStatus.
func (r *bulkUpdateRequestRepository) Update(ctx context.Context, req *models.BulkUpdateRequest) (err error) {
	ctx, done := traceQuery(ctx, "Update", "bulk_update_requests")
	defer func() { done(err) }()

	result := r.db.WithContext(ctx).
		Model(&models.BulkUpdateRequest{}).
		Where("id = ? AND status = ?", req.ID, models.BulkUpdateRequestStatusPending).
		Updates(map[string]interface{}{
			"script":         req.Script,
			"forum_topic_id": req.ForumTopicID,
			"updated_at":     time.Now(),
		})
	if err = result.Error; err != nil {
		r.log.Failed(ctx, "update", err)
		return models.NewInternalError(err)
	}
	if result.RowsAffected == 0 {
		var statuses []string
		err = r.db.WithContext(ctx).
			Model(&models.BulkUpdateRequest{}).
			Where("id = ?", req.ID).
			Pluck("status", &statuses).Error
		if err != nil {
			r.log.Failed(ctx, "update", err)
			return models.NewInternalError(err)
		}
		if len(statuses) == 0 {
			return models.NewNotFoundError("BulkUpdateRequest", req.ID)
		}
		return models.NewConflictError(fmt.Sprintf("Bulk update request #%d is %s and can no longer be edited", req.ID, statuses[0]))
	}
	r.log.Done(ctx, "update", "id", req.ID)
	return nil
}

func (r *bulkUpdateRequestRepository) SetForumTopic(ctx context.Context, id, topicID uint) (err error) {
	ctx, done := traceQuery(ctx, "SetForumTopic", "bulk_update_requests")
	defer func() { done(err) }()

	if err = r.db.WithContext(ctx).
		Model(&models.BulkUpdateRequest{}).
		Where("id = ?", id).
		Update("forum_topic_id", topicID).Error; err != nil {
		r.log.Failed(ctx, "set_forum_topic", err)
		return models.NewInternalError(err)
	}
	return nil
}

// TransitionStatus moves the request from one status to another only if it
// is still in from. It reports whether this call performed the change, so
// exactly one of several concurrent callers wins.
func (r *bulkUpdateRequestRepository) TransitionStatus(ctx context.Context, id uint, from, to models.BulkUpdateRequestStatus) (_ bool, err error) {
	ctx, done := traceQuery(ctx, "TransitionStatus", "bulk_update_requests")
	defer func() { done(err) }()

	result := r.db.WithContext(ctx).
		Model(&models.BulkUpdateRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if err = result.Error; err != nil {
		r.log.Failed(ctx, "transition", err)
		return false, models.NewInternalError(err)
	}
	if result.RowsAffected != 1 {
		return false, nil
	}
	r.log.Done(ctx, "transition", "id", id, "from", from, "to", to)
	return true, nil
}

func (r *bulkUpdateRequestRepository) Search(ctx context.Context, params BulkUpdateRequestSearchParams, limit, offset int) (_ []models.BulkUpdateRequest, _ int64, err error) {
	ctx, done := traceQuery(ctx, "Search", "bulk_update_requests")
	defer func() { done(err) }()

	limit, offset = clampPage(limit, offset)
	scope := BulkUpdateRequestSearch(params)

	var total int64
	if err = r.db.WithContext(ctx).Model(&models.BulkUpdateRequest{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var requests []models.BulkUpdateRequest
	if err = r.db.WithContext(ctx).
		Scopes(scope).
		Preload("User").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	r.log.Done(ctx, "search", "count", len(requests), "total", total)
	return requests, total, nil
}
