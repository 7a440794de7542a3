// Package domain contains persistence models for unit channels and
// their subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Subscription roles, ordered by privilege.
const (
	SubscriptionModerator  = "moderator"
	SubscriptionMember     = "member"
	SubscriptionSubscriber = "subscriber"
)

// Channel is the discussion space attached to an organization unit.
// LastSyncError keeps the most recent cascade failure for operators;
// it clears on the next successful sync.
type Channel struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationUnitID snowflake.ID `gorm:"not null;uniqueIndex:ux_channels_unit" json:"organization_unit_id"`
	Name               string       `gorm:"type:text;not null" json:"name"`
	Slug               string       `gorm:"type:text;not null" json:"slug"`
	AutoCreated        bool         `gorm:"not null;default:false" json:"auto_created"`
	SubscriberCount    int          `gorm:"not null;default:0" json:"subscriber_count"`
	LastSyncError      *string      `gorm:"type:text" json:"last_sync_error,omitempty"`
	Active             bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Channel) TableName() string { return "channels" }

// ChannelSubscription links a user to a unit channel with a role.
type ChannelSubscription struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ChannelID snowflake.ID `gorm:"not null;uniqueIndex:ux_channel_subscriptions_channel_user" json:"channel_id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_channel_subscriptions_channel_user;index" json:"user_id"`
	Role      string       `gorm:"type:text;not null;default:'subscriber'" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ChannelSubscription) TableName() string { return "channel_subscriptions" }

// Employment is the read model the synchronizer works from: a user's
// current appointment joined with the position flags that decide the
// channel role.
type Employment struct {
	UserID                snowflake.ID
	UnitID                snowflake.ID
	PositionID            snowflake.ID
	IsManagerial          bool
	CanManageSubordinates bool
}

// HomeRole picks the role a user gets on their own unit's channel:
// moderator for positions that manage subordinates, member for merely
// managerial ones, subscriber for the rest.
func (e Employment) HomeRole() string {
	switch {
	case e.CanManageSubordinates:
		return SubscriptionModerator
	case e.IsManagerial:
		return SubscriptionMember
	default:
		return SubscriptionSubscriber
	}
}
