package repository

import (
	"context"

	"tagboard/internal/models"

	"gorm.io/gorm"
)

// ForumRepository defines persistence operations for forum topics and posts.
type ForumRepository interface {
	TopicExists(ctx context.Context, id uint) (bool, error)
	GetTopic(ctx context.Context, id uint) (*models.ForumTopic, error)
	CreateTopic(ctx context.Context, topic *models.ForumTopic, openingPost *models.ForumPost) error
	CreatePost(ctx context.Context, post *models.ForumPost) error
	ListPosts(ctx context.Context, topicID uint) ([]models.ForumPost, error)
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository returns a new ForumRepository implementation.
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) TopicExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ForumTopic{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *forumRepository) GetTopic(ctx context.Context, id uint) (*models.ForumTopic, error) {
	var topic models.ForumTopic
	if err := r.db.WithContext(ctx).
		Preload("Posts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&topic, id).Error; err != nil {
		return nil, lookupError(err, "ForumTopic", id)
	}
	return &topic, nil
}

// CreateTopic stores the topic and its opening post together.
func (r *forumRepository) CreateTopic(ctx context.Context, topic *models.ForumTopic, openingPost *models.ForumPost) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Posts").Create(topic).Error; err != nil {
			return err
		}
		openingPost.TopicID = topic.ID
		if openingPost.CreatorID == 0 {
			openingPost.CreatorID = topic.CreatorID
		}
		return tx.Create(openingPost).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *forumRepository) CreatePost(ctx context.Context, post *models.ForumPost) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *forumRepository) ListPosts(ctx context.Context, topicID uint) ([]models.ForumPost, error) {
	var posts []models.ForumPost
	if err := r.db.WithContext(ctx).Where("topic_id = ?", topicID).Order("id ASC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
