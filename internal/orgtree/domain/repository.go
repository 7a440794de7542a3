package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists organization units.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Insert(ctx context.Context, unit *OrganizationUnit) error
	Get(ctx context.Context, id snowflake.ID) (*OrganizationUnit, error)
	Update(ctx context.Context, unit *OrganizationUnit) error

	// ListByPathPrefix returns the unit whose path equals prefix plus
	// every descendant, ordered by path then order_index.
	ListByPathPrefix(ctx context.Context, prefix string) ([]OrganizationUnit, error)
	ListRoots(ctx context.Context) ([]OrganizationUnit, error)
	ListChildren(ctx context.Context, parentID snowflake.ID) ([]OrganizationUnit, error)
	CountActiveChildren(ctx context.Context, parentID snowflake.ID) (int64, error)
	NextOrderIndex(ctx context.Context, parentID *snowflake.ID) (int, error)
	SetActive(ctx context.Context, id snowflake.ID, active bool) error
}
