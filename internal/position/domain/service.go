package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrPositionNotFound  = errors.New("position_not_found")
	ErrInvalidTitle      = errors.New("invalid_position_title")
	ErrInvalidUnit       = errors.New("invalid_organization_unit")
	ErrInvalidReportsTo  = errors.New("invalid_reports_to_position")
	ErrPositionInactive  = errors.New("position_inactive")
	ErrPositionOccupied  = errors.New("position_fully_occupied")
	ErrInvalidMaxHolders = errors.New("invalid_max_holders")
)

// CreatePositionRequest carries the attributes of a new post.
type CreatePositionRequest struct {
	Title              string        `json:"title"`
	OrganizationUnitID snowflake.ID  `json:"organization_unit_id"`
	ReportsToID        *snowflake.ID `json:"reports_to_id,omitempty"`
	IsManagerial       bool          `json:"is_managerial"`
	CanManageSubs      bool          `json:"can_manage_subordinates"`
	CanAssignTasks     bool          `json:"can_assign_tasks"`
	CanDiscipline      bool          `json:"can_issue_disciplinary_actions"`
	MaxHolders         int           `json:"max_holders"`
}

// UpdatePositionRequest carries mutable attributes; nil fields are left
// untouched.
type UpdatePositionRequest struct {
	Title          *string       `json:"title,omitempty"`
	ReportsToID    *snowflake.ID `json:"reports_to_id,omitempty"`
	IsManagerial   *bool         `json:"is_managerial,omitempty"`
	CanManageSubs  *bool         `json:"can_manage_subordinates,omitempty"`
	CanAssignTasks *bool         `json:"can_assign_tasks,omitempty"`
	CanDiscipline  *bool         `json:"can_issue_disciplinary_actions,omitempty"`
	MaxHolders     *int          `json:"max_holders,omitempty"`
	Active         *bool         `json:"active,omitempty"`
}

// Service exposes position catalog operations.
type Service interface {
	CreatePosition(ctx context.Context, req CreatePositionRequest) (*Position, error)
	GetPosition(ctx context.Context, id snowflake.ID) (*Position, error)
	UpdatePosition(ctx context.Context, id snowflake.ID, req UpdatePositionRequest) (*Position, error)
	ListByUnit(ctx context.Context, unitID snowflake.ID) ([]Position, error)

	// RequireAssignable verifies the position is active and has a free
	// slot; used by the appointment ledger before inserting.
	RequireAssignable(ctx context.Context, id snowflake.ID) (*Position, error)
}
