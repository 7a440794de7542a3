package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	GetByLogin(ctx context.Context, login string) (*User, error)
	UpdateSystemRole(ctx context.Context, id snowflake.ID, role string) error
}
