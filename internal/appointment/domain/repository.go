package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists appointments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Insert(ctx context.Context, appointment *Appointment) error
	Get(ctx context.Context, id snowflake.ID) (*Appointment, error)
	GetCurrent(ctx context.Context, userID snowflake.ID) (*Appointment, error)

	// CloseCurrent ends the user's active appointment and returns the
	// number of rows affected. Zero means there was nothing to close.
	CloseCurrent(ctx context.Context, userID snowflake.ID, endDate time.Time, reason *string) (int64, error)

	// History returns all appointments for a user, current row first,
	// then by descending start date.
	History(ctx context.Context, userID snowflake.ID) ([]Appointment, error)
}
