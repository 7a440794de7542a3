// Package domain contains the read models of the hierarchy query engine.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrUserNotPlaced = errors.New("user_not_placed")

// Placement is one user's seat in the hierarchy: their current
// appointment joined with the position and unit it lives in.
type Placement struct {
	UserID        snowflake.ID  `json:"user_id"`
	Login         string        `json:"login"`
	FullName      string        `json:"full_name"`
	PositionID    snowflake.ID  `json:"position_id"`
	PositionTitle string        `json:"position_title"`
	ReportsToID   *snowflake.ID `json:"reports_to_id,omitempty"`
	IsManagerial  bool          `json:"is_managerial"`
	UnitID        snowflake.ID  `json:"unit_id"`
	UnitName      string        `json:"unit_name"`
	UnitPath      string        `json:"-"`
}

// Overview bundles a user's placement with their reporting neighbors.
type Overview struct {
	Placement    *Placement  `json:"placement,omitempty"`
	Supervisor   *Placement  `json:"supervisor,omitempty"`
	Subordinates []Placement `json:"subordinates"`
}

// Repository reads placements across the appointment, position, and
// organization unit tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CurrentByUser(ctx context.Context, userID snowflake.ID) (*Placement, error)
	HoldersOfPosition(ctx context.Context, positionID snowflake.ID) ([]Placement, error)

	// HoldersReportingTo returns current holders of every position
	// whose reports_to points at the given position.
	HoldersReportingTo(ctx context.Context, positionID snowflake.ID) ([]Placement, error)
	ManagerialInUnit(ctx context.Context, unitID snowflake.ID) ([]Placement, error)
	EmployeesByUnitPath(ctx context.Context, unitPath string, includeDescendants bool) ([]Placement, error)
}

// Service answers reporting-line and staffing queries. A user without a
// current appointment gets empty results, not errors.
type Service interface {
	DirectSupervisor(ctx context.Context, userID snowflake.ID) (*Placement, error)
	Subordinates(ctx context.Context, userID snowflake.ID, transitive bool) ([]Placement, error)
	SubtreeEmployees(ctx context.Context, unitID snowflake.ID, includeDescendants bool) ([]Placement, error)
	UserHierarchy(ctx context.Context, userID snowflake.ID) (*Overview, error)
}
