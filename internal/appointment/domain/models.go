// Package domain contains persistence models for the appointment ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Appointment records a user holding a position for a span of time.
// At most one row per user carries IsCurrent; the partial unique index
// ux_appointments_user_current enforces that under concurrent writers.
type Appointment struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID             snowflake.ID  `gorm:"not null;index" json:"user_id"`
	PositionID         snowflake.ID  `gorm:"not null;index" json:"position_id"`
	OrganizationUnitID snowflake.ID  `gorm:"not null;index" json:"organization_unit_id"`
	PositionTitle      string        `gorm:"type:text;not null" json:"position_title"`
	IsCurrent          bool          `gorm:"not null;default:false" json:"is_current"`
	StartDate          time.Time     `gorm:"not null" json:"start_date"`
	EndDate            *time.Time    `json:"end_date,omitempty"`
	AppointedBy        *snowflake.ID `json:"appointed_by,omitempty"`
	OrderReference     *string       `gorm:"type:text" json:"order_reference,omitempty"`
	DismissalReason    *string       `gorm:"type:text" json:"dismissal_reason,omitempty"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Appointment) TableName() string { return "appointments" }
