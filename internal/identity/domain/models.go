// Package domain contains persistence models for the identity store.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is a person known to the platform. SystemRole is a derived
// projection of the user's current appointment; only the appointment
// cascade writes it.
type User struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Login      string       `gorm:"type:text;not null;uniqueIndex:ux_users_login" json:"login"`
	FullName   string       `gorm:"type:text;not null" json:"full_name"`
	Status     string       `gorm:"type:text;not null;default:'active'" json:"status"`
	SystemRole string       `gorm:"type:text;not null;default:'guest'" json:"system_role"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u User) Active() bool {
	return u.Status == StatusActive
}
