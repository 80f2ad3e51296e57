package models

import "time"

// DefaultForumCategoryID is the category bulk update topics are filed under.
const DefaultForumCategoryID = 1

// ForumTopic is a discussion thread.
type ForumTopic struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	CreatorID  uint        `gorm:"not null;index" json:"creator_id"`
	Title      string      `gorm:"size:255;not null" json:"title"`
	CategoryID int         `gorm:"not null;default:0" json:"category_id"`
	Posts      []ForumPost `gorm:"foreignKey:TopicID" json:"posts,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ForumTopic) TableName() string {
	return "forum_topics"
}

// ForumPost is a single message within a ForumTopic.
type ForumPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TopicID   uint      `gorm:"not null;index" json:"topic_id"`
	CreatorID uint      `gorm:"not null;index" json:"creator_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ForumPost) TableName() string {
	return "forum_posts"
}
