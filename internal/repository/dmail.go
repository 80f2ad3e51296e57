package repository

import (
	"context"

	"tagboard/internal/models"

	"gorm.io/gorm"
)

// DmailRepository defines persistence operations for private messages.
type DmailRepository interface {
	Create(ctx context.Context, dmail *models.Dmail) error
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Dmail, error)
}

type dmailRepository struct {
	db *gorm.DB
}

// NewDmailRepository returns a new DmailRepository implementation.
func NewDmailRepository(db *gorm.DB) DmailRepository {
	return &dmailRepository{db: db}
}

func (r *dmailRepository) Create(ctx context.Context, dmail *models.Dmail) error {
	if err := r.db.WithContext(ctx).Create(dmail).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *dmailRepository) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Dmail, error) {
	limit, offset = clampPage(limit, offset)
	var dmails []models.Dmail
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&dmails).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return dmails, nil
}
