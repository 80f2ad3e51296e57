package models

import "time"

// BulkUpdateRequestStatus defines lifecycle states for bulk update requests.
type BulkUpdateRequestStatus string

const (
	// BulkUpdateRequestStatusPending indicates the request is awaiting review.
	BulkUpdateRequestStatusPending BulkUpdateRequestStatus = "pending"
	// BulkUpdateRequestStatusApproved indicates the script was applied.
	BulkUpdateRequestStatusApproved BulkUpdateRequestStatus = "approved"
	// BulkUpdateRequestStatusRejected indicates the request was denied.
	BulkUpdateRequestStatusRejected BulkUpdateRequestStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s BulkUpdateRequestStatus) Valid() bool {
	switch s {
	case BulkUpdateRequestStatusPending, BulkUpdateRequestStatusApproved, BulkUpdateRequestStatusRejected:
		return true
	}
	return false
}

// BulkUpdateRequest is a user-submitted script of alias, implication and
// mass update directives awaiting review.
type BulkUpdateRequest struct {
	ID           uint                    `gorm:"primaryKey" json:"id"`
	UserID       uint                    `gorm:"not null;index" json:"user_id"`
	User         *User                   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ForumTopicID *uint                   `gorm:"index" json:"forum_topic_id"`
	Script       string                  `gorm:"type:text;not null" json:"script"`
	Status       BulkUpdateRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	// Title and Reason only feed the forum topic created alongside the request.
	Title     string    `gorm:"-" json:"title,omitempty"`
	Reason    string    `gorm:"-" json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (BulkUpdateRequest) TableName() string {
	return "bulk_update_requests"
}

// IsPending reports whether the request can still be approved or rejected.
func (r *BulkUpdateRequest) IsPending() bool {
	return r.Status == BulkUpdateRequestStatusPending
}

// EditableBy reports whether user may change the request script.
func (r *BulkUpdateRequest) EditableBy(user *User) bool {
	if user == nil {
		return false
	}
	return r.UserID == user.ID || user.IsBuilder || user.IsAdmin
}
