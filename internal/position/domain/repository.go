package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists positions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Insert(ctx context.Context, position *Position) error
	Get(ctx context.Context, id snowflake.ID) (*Position, error)
	Update(ctx context.Context, position *Position) error
	ListByUnit(ctx context.Context, unitID snowflake.ID) ([]Position, error)
	CountCurrentHolders(ctx context.Context, positionID snowflake.ID) (int64, error)
}
