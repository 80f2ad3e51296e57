package repository

import (
	"context"

	"tagboard/internal/models"

	"gorm.io/gorm"
)

// tagScanBatchSize bounds how many posts FindTagged loads at once.
const tagScanBatchSize = 500

// PostRepository defines persistence operations for tagged posts.
type PostRepository interface {
	WithTx(tx *gorm.DB) PostRepository
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	FindTagged(ctx context.Context, tags []string, fn func(posts []models.Post) error) error
	UpdateTagString(ctx context.Context, id uint, tagString string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *postRepository) WithTx(tx *gorm.DB) PostRepository {
	return &postRepository{db: tx}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

// FindTagged streams posts whose tag string carries every name in tags to fn
// in batches. An empty tags slice matches nothing.
func (r *postRepository) FindTagged(ctx context.Context, tags []string, fn func(posts []models.Post) error) (err error) {
	if len(tags) == 0 {
		return nil
	}
	ctx, done := traceQuery(ctx, "FindTagged", "posts")
	defer func() { done(err) }()

	query := r.db.WithContext(ctx).Model(&models.Post{})
	for _, tag := range tags {
		// LIKE wildcards in tag names only widen the prefilter; hasAll decides.
		query = query.Where("(' ' || tag_string || ' ') LIKE ?", "% "+tag+" %")
	}

	var batch []models.Post
	result := query.Order("id ASC").FindInBatches(&batch, tagScanBatchSize, func(tx *gorm.DB, _ int) error {
		matched := make([]models.Post, 0, len(batch))
		for _, p := range batch {
			if hasAll(&p, tags) {
				matched = append(matched, p)
			}
		}
		if len(matched) == 0 {
			return nil
		}
		return fn(matched)
	})
	if err = result.Error; err != nil {
		return err
	}
	return nil
}

func (r *postRepository) UpdateTagString(ctx context.Context, id uint, tagString string) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("tag_string", tagString).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func hasAll(p *models.Post, tags []string) bool {
	for _, t := range tags {
		if !p.HasTag(t) {
			return false
		}
	}
	return true
}
