package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	// RequireActive loads the user and fails unless their status is active.
	RequireActive(ctx context.Context, id snowflake.ID) (*User, error)
	// SetSystemRole writes the derived role projection. Only the
	// appointment cascade may call this.
	SetSystemRole(ctx context.Context, tx *gorm.DB, id snowflake.ID, role string) error
}

var (
	ErrUserNotFound = errors.New("user_not_found")
	ErrUserInactive = errors.New("user_inactive")
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidRole  = errors.New("invalid_role")
)
