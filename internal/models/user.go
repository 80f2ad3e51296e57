package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a member account. Builders may edit any pending bulk update
// request; admins also approve them and receive approval failure reports.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	IsAdmin   bool           `gorm:"not null;default:false;index" json:"is_admin"`
	IsBuilder bool           `gorm:"not null;default:false" json:"is_builder"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Role is the permission level derived from the account flags.
type Role string

const (
	RoleMember  Role = "member"
	RoleBuilder Role = "builder"
	RoleAdmin   Role = "admin"
)

// ParseRole accepts the names of the three roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleMember, RoleBuilder, RoleAdmin:
		return r, true
	}
	return "", false
}

// Role returns the highest role the account holds.
func (u *User) Role() Role {
	switch {
	case u.IsAdmin:
		return RoleAdmin
	case u.IsBuilder:
		return RoleBuilder
	default:
		return RoleMember
	}
}

// SetRole sets the account flags for r. Admins keep builder rights.
func (u *User) SetRole(r Role) {
	u.IsAdmin = r == RoleAdmin
	u.IsBuilder = r == RoleAdmin || r == RoleBuilder
}
