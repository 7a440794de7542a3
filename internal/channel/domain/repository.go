package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists channels and subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	InsertChannel(ctx context.Context, channel *Channel) error
	GetChannel(ctx context.Context, id snowflake.ID) (*Channel, error)
	GetChannelByUnit(ctx context.Context, unitID snowflake.ID) (*Channel, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	SetLastSyncError(ctx context.Context, channelID snowflake.ID, message *string) error
	RefreshSubscriberCount(ctx context.Context, channelID snowflake.ID) error

	UpsertSubscription(ctx context.Context, sub *ChannelSubscription) error
	DeleteSubscription(ctx context.Context, channelID, userID snowflake.ID) error
	ListSubscriptions(ctx context.Context, channelID snowflake.ID) ([]ChannelSubscription, error)
	ListUserSubscriptions(ctx context.Context, userID snowflake.ID) ([]ChannelSubscription, error)

	// CurrentEmployment returns the user's active appointment joined
	// with its position flags, or nil when the user holds nothing.
	CurrentEmployment(ctx context.Context, userID snowflake.ID) (*Employment, error)

	// ListSubtreeEmployments returns every active appointment whose
	// unit path equals unitPath or descends from it.
	ListSubtreeEmployments(ctx context.Context, unitPath string) ([]Employment, error)
}
