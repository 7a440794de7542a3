package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrChannelNotFound = errors.New("channel_not_found")
	ErrInvalidChannel  = errors.New("invalid_channel")
)

// ResyncReport summarizes a manual membership repair run.
type ResyncReport struct {
	ChannelID snowflake.ID `json:"channel_id"`
	Added     int          `json:"added"`
	Updated   int          `json:"updated"`
	Removed   int          `json:"removed"`
}

// Service exposes channel provisioning and membership synchronization.
type Service interface {
	// EnsureUnitChannel creates the unit's channel if it does not
	// exist yet. Idempotent.
	EnsureUnitChannel(ctx context.Context, unitID snowflake.ID) error

	GetChannelByUnit(ctx context.Context, unitID snowflake.ID) (*Channel, error)
	ListUserSubscriptions(ctx context.Context, userID snowflake.ID) ([]ChannelSubscription, error)

	// SyncAppointmentChange diffs the old and new ancestor chains and
	// applies subscription adds, removals, and role updates. Failures
	// are isolated per channel: one broken channel never blocks the
	// rest of the cascade.
	SyncAppointmentChange(ctx context.Context, userID snowflake.ID, oldUnitID, newUnitID *snowflake.ID) error

	// SyncOrganizationChannelMembership rebuilds a unit channel's
	// subscriptions from the ledger. Idempotent repair for drift left
	// behind by partial cascade failures.
	SyncOrganizationChannelMembership(ctx context.Context, unitID snowflake.ID) (*ResyncReport, error)
}
