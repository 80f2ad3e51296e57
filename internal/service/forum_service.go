package service

import (
	"context"
	"strings"

	"tagboard/internal/models"
	"tagboard/internal/repository"
)

// ForumService creates the threads bulk update requests are discussed in.
type ForumService struct {
	repo       repository.ForumRepository
	categoryID int
}

func NewForumService(repo repository.ForumRepository, categoryID int) *ForumService {
	if categoryID <= 0 {
		categoryID = models.DefaultForumCategoryID
	}
	return &ForumService{repo: repo, categoryID: categoryID}
}

func (s *ForumService) TopicExists(ctx context.Context, id uint) (bool, error) {
	return s.repo.TopicExists(ctx, id)
}

// CreateTopic opens a thread whose first post is body and returns its id.
func (s *ForumService) CreateTopic(ctx context.Context, creatorID uint, title, body string) (uint, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, models.NewValidationError("Forum topic title can't be blank")
	}
	topic := &models.ForumTopic{
		CreatorID:  creatorID,
		Title:      title,
		CategoryID: s.categoryID,
	}
	if err := s.repo.CreateTopic(ctx, topic, &models.ForumPost{CreatorID: creatorID, Body: body}); err != nil {
		return 0, err
	}
	return topic.ID, nil
}

func (s *ForumService) CreatePost(ctx context.Context, topicID, creatorID uint, body string) error {
	if strings.TrimSpace(body) == "" {
		return models.NewValidationError("Forum post body can't be blank")
	}
	return s.repo.CreatePost(ctx, &models.ForumPost{
		TopicID:   topicID,
		CreatorID: creatorID,
		Body:      body,
	})
}

func (s *ForumService) GetTopic(ctx context.Context, id uint) (*models.ForumTopic, error) {
	return s.repo.GetTopic(ctx, id)
}
