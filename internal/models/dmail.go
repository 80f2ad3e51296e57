package models

import "time"

// Dmail is a private message. Each copy belongs to OwnerID.
type Dmail struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	FromID    uint      `gorm:"not null" json:"from_id"`
	ToID      uint      `gorm:"not null;index" json:"to_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Dmail) TableName() string {
	return "dmails"
}
