package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrUnitNotFound    = errors.New("organization_unit_not_found")
	ErrParentNotFound  = errors.New("parent_unit_not_found")
	ErrParentInactive  = errors.New("parent_unit_inactive")
	ErrInvalidUnitName = errors.New("invalid_unit_name")
	ErrInvalidUnitType = errors.New("invalid_unit_type")
	ErrUnitHasChildren = errors.New("unit_has_active_children")
	ErrUnitInactive    = errors.New("organization_unit_inactive")
	ErrOrderIndexTaken = errors.New("order_index_taken")
)

// CreateUnitRequest carries the attributes of a new structural node.
// A nil ParentID creates a root unit.
type CreateUnitRequest struct {
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	ParentID   *snowflake.ID `json:"parent_id,omitempty"`
	OrderIndex *int          `json:"order_index,omitempty"`
}

// UpdateUnitRequest carries mutable attributes. Nil fields are left
// untouched; structural fields (parent, path) are not updatable here.
type UpdateUnitRequest struct {
	Name       *string `json:"name,omitempty"`
	OrderIndex *int    `json:"order_index,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// TreeNode is one assembled node of the subtree response.
type TreeNode struct {
	Unit     OrganizationUnit `json:"unit"`
	Children []*TreeNode      `json:"children"`
}

// ChannelProvisioner creates the discussion channel that accompanies a
// structural unit. Wired from the channel module; failures never roll
// back the structural write.
type ChannelProvisioner interface {
	EnsureUnitChannel(ctx context.Context, unitID snowflake.ID) error
}

// Service exposes the organization tree operations.
type Service interface {
	CreateUnit(ctx context.Context, req CreateUnitRequest) (*OrganizationUnit, error)
	GetUnit(ctx context.Context, id snowflake.ID) (*OrganizationUnit, error)
	UpdateUnit(ctx context.Context, id snowflake.ID, req UpdateUnitRequest) (*OrganizationUnit, error)
	DeleteUnit(ctx context.Context, id snowflake.ID, force bool) error

	// GetSubtree assembles the tree rooted at rootID, or the whole
	// forest when rootID is nil. maxDepth <= 0 means unbounded.
	GetSubtree(ctx context.Context, rootID *snowflake.ID, maxDepth int) ([]*TreeNode, error)

	// AncestorChain returns the unit's ancestor ids, root first,
	// including the unit itself.
	AncestorChain(ctx context.Context, id snowflake.ID) ([]snowflake.ID, error)
}
