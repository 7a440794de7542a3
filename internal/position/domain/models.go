// Package domain contains persistence models for the position catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Position is a named post inside an organization unit. Its flags feed
// both system-role derivation and channel membership roles.
type Position struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	Title              string        `gorm:"type:text;not null" json:"title"`
	OrganizationUnitID snowflake.ID  `gorm:"not null;index" json:"organization_unit_id"`
	ReportsToID        *snowflake.ID `gorm:"index" json:"reports_to_id,omitempty"`
	IsManagerial       bool          `gorm:"not null;default:false" json:"is_managerial"`
	CanManageSubs      bool          `gorm:"column:can_manage_subordinates;not null;default:false" json:"can_manage_subordinates"`
	CanAssignTasks     bool          `gorm:"not null;default:false" json:"can_assign_tasks"`
	CanDiscipline      bool          `gorm:"column:can_issue_disciplinary_actions;not null;default:false" json:"can_issue_disciplinary_actions"`
	MaxHolders         int           `gorm:"not null;default:1" json:"max_holders"`
	Active             bool          `gorm:"not null;default:true" json:"active"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Position) TableName() string { return "positions" }
