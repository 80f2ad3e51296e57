package models

import "time"

// TagRelationshipStatus defines the state of an alias or implication.
type TagRelationshipStatus string

const (
	// TagRelationshipStatusActive marks a relationship that is in effect.
	TagRelationshipStatusActive TagRelationshipStatus = "active"
	// TagRelationshipStatusDeleted marks a relationship retired by a request.
	TagRelationshipStatusDeleted TagRelationshipStatus = "deleted"
)

// TagAlias maps AntecedentName onto the canonical ConsequentName. Removed
// aliases stay as deleted rows naming the request that removed them.
type TagAlias struct {
	ID                 uint                  `gorm:"primaryKey" json:"id"`
	AntecedentName     string                `gorm:"size:170;not null;uniqueIndex" json:"antecedent_name"`
	ConsequentName     string                `gorm:"size:170;not null;index" json:"consequent_name"`
	CreatorID          uint                  `gorm:"not null" json:"creator_id"`
	ForumTopicID       *uint                 `json:"forum_topic_id"`
	Status             TagRelationshipStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	RemovedByRequestID *uint                 `gorm:"index" json:"removed_by_request_id,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (TagAlias) TableName() string {
	return "tag_aliases"
}

// TagImplication states that tagging AntecedentName also applies ConsequentName.
type TagImplication struct {
	ID                 uint                  `gorm:"primaryKey" json:"id"`
	AntecedentName     string                `gorm:"size:170;not null;uniqueIndex:idx_tag_implications_pair" json:"antecedent_name"`
	ConsequentName     string                `gorm:"size:170;not null;uniqueIndex:idx_tag_implications_pair" json:"consequent_name"`
	CreatorID          uint                  `gorm:"not null" json:"creator_id"`
	ForumTopicID       *uint                 `json:"forum_topic_id"`
	Status             TagRelationshipStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	RemovedByRequestID *uint                 `gorm:"index" json:"removed_by_request_id,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (TagImplication) TableName() string {
	return "tag_implications"
}
