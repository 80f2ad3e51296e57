package repository

import (
	"context"
	"errors"
	"time"

	"tagboard/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for aliases and implications.
// Lookups only see active rows; removal retires a row instead of deleting it.
type TagRepository interface {
	WithTx(tx *gorm.DB) TagRepository
	FindAlias(ctx context.Context, antecedent string) (*models.TagAlias, error)
	CreateAlias(ctx context.Context, alias *models.TagAlias) error
	DeleteAlias(ctx context.Context, antecedent, consequent string, requestID uint) (bool, error)
	AliasRemovedBy(ctx context.Context, antecedent, consequent string, requestID uint) (bool, error)
	FindImplication(ctx context.Context, antecedent, consequent string) (*models.TagImplication, error)
	CreateImplication(ctx context.Context, implication *models.TagImplication) error
	DeleteImplication(ctx context.Context, antecedent, consequent string, requestID uint) (bool, error)
	ImplicationRemovedBy(ctx context.Context, antecedent, consequent string, requestID uint) (bool, error)
	ListAliases(ctx context.Context, limit, offset int) ([]models.TagAlias, error)
	ListImplications(ctx context.Context, limit, offset int) ([]models.TagImplication, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *tagRepository) WithTx(tx *gorm.DB) TagRepository {
	return &tagRepository{db: tx}
}

// FindAlias returns the active alias for antecedent, or nil when none exists.
func (r *tagRepository) FindAlias(ctx context.Context, antecedent string) (*models.TagAlias, error) {
	var alias models.TagAlias
	err := r.db.WithContext(ctx).
		Where("antecedent_name = ? AND status = ?", antecedent, models.TagRelationshipStatusActive).
		First(&alias).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &alias, nil
}

// CreateAlias stores alias as active, reusing a retired row for the same
// antecedent when there is one.
func (r *tagRepository) CreateAlias(ctx context.Context, alias *models.TagAlias) error {
	var retired models.TagAlias
	err := r.db.WithContext(ctx).
		Where("antecedent_name = ? AND status = ?", alias.AntecedentName, models.TagRelationshipStatusDeleted).
		First(&retired).Error
	switch {
	case err == nil:
		alias.ID = retired.ID
		alias.CreatedAt = retired.CreatedAt
		alias.Status = models.TagRelationshipStatusActive
		alias.RemovedByRequestID = nil
		err = r.db.WithContext(ctx).Save(alias).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = r.db.WithContext(ctx).Create(alias).Error
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Tag alias already exists for " + alias.AntecedentName)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteAlias retires the active pair on behalf of requestID and reports
// whether a row changed.
func (r *tagRepository) DeleteAlias(ctx context.Context, antecedent, consequent string, requestID uint) (bool, error) {
	return r.retire(ctx, &models.TagAlias{}, antecedent, consequent, requestID)
}

// AliasRemovedBy reports whether requestID already retired the pair.
func (r *tagRepository) AliasRemovedBy(ctx context.Context, antecedent, consequent string, requestID uint) (bool, error) {
	return r.retiredBy(ctx, &models.TagAlias{}, antecedent, consequent, requestID)
}

// FindImplication returns the active implication for the pair, or nil when
// none exists.
func (r *tagRepository) FindImplication(ctx context.Context, antecedent, consequent string) (*models.TagImplication, error) {
	var implication models.TagImplication
	err := r.db.WithContext(ctx).
		Where("antecedent_name = ? AND consequent_name = ? AND status = ?", antecedent, consequent, models.TagRelationshipStatusActive).
		First(&implication).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &implication, nil
}

func (r *tagRepository) CreateImplication(ctx context.Context, implication *models.TagImplication) error {
	var retired models.TagImplication
	err := r.db.WithContext(ctx).
		Where("antecedent_name = ? AND consequent_name = ? AND status = ?",
			implication.AntecedentName, implication.ConsequentName, models.TagRelationshipStatusDeleted).
		First(&retired).Error
	switch {
	case err == nil:
		implication.ID = retired.ID
		implication.CreatedAt = retired.CreatedAt
		implication.Status = models.TagRelationshipStatusActive
		implication.RemovedByRequestID = nil
		err = r.db.WithContext(ctx).Save(implication).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = r.db.WithContext(ctx).Create(implication).Error
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Tag implication already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tagRepository) DeleteImplication(ctx context.Context, antecedent, consequent string, requestID uint) (bool, error) {
	return r.retire(ctx, &models.TagImplication{}, antecedent, consequent, requestID)
}

func (r *tagRepository) ImplicationRemovedBy(ctx context.Context, antecedent, consequent string, requestID uint) (bool, error) {
	return r.retiredBy(ctx, &models.TagImplication{}, antecedent, consequent, requestID)
}

func (r *tagRepository) retire(ctx context.Context, model interface{}, antecedent, consequent string, requestID uint) (bool, error) {
	var removedBy *uint
	if requestID != 0 {
		removedBy = &requestID
	}
	result := r.db.WithContext(ctx).
		Model(model).
		Where("antecedent_name = ? AND consequent_name = ? AND status = ?", antecedent, consequent, models.TagRelationshipStatusActive).
		Updates(map[string]interface{}{
			"status":                models.TagRelationshipStatusDeleted,
			"removed_by_request_id": removedBy,
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *tagRepository) retiredBy(ctx context.Context, model interface{}, antecedent, consequent string, requestID uint) (bool, error) {
	if requestID == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(model).
		Where("antecedent_name = ? AND consequent_name = ? AND status = ? AND removed_by_request_id = ?",
			antecedent, consequent, models.TagRelationshipStatusDeleted, requestID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *tagRepository) ListAliases(ctx context.Context, limit, offset int) ([]models.TagAlias, error) {
	limit, offset = clampPage(limit, offset)
	var aliases []models.TagAlias
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TagRelationshipStatusActive).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&aliases).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return aliases, nil
}

func (r *tagRepository) ListImplications(ctx context.Context, limit, offset int) ([]models.TagImplication, error) {
	limit, offset = clampPage(limit, offset)
	var implications []models.TagImplication
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TagRelationshipStatusActive).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&implications).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return implications, nil
}
