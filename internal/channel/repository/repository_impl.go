package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stateline/govcomm/internal/channel/domain"
)

type repository struct {
	db *gorm.DB
}

// New constructs the channel repository.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) InsertChannel(ctx context.Context, channel *domain.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

func (r *repository) GetChannel(ctx context.Context, id snowflake.ID) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	return &channel, nil
}

func (r *repository) GetChannelByUnit(ctx context.Context, unitID snowflake.ID) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.db.WithContext(ctx).
		Where("organization_unit_id = ?", unitID).
		First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	return &channel, nil
}

func (r *repository) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	var channels []domain.Channel
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&channels).Error
	return channels, err
}

func (r *repository) SetLastSyncError(ctx context.Context, channelID snowflake.ID, message *string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Channel{}).
		Where("id = ?", channelID).
		Updates(map[string]any{
			"last_sync_error": message,
			"updated_at":      gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *repository) RefreshSubscriberCount(ctx context.Context, channelID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE channels
		 SET subscriber_count = (
			SELECT COUNT(*) FROM channel_subscriptions WHERE channel_id = ?
		 ), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		channelID, channelID,
	).Error
}

func (r *repository) UpsertSubscription(ctx context.Context, sub *domain.ChannelSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).
		Create(sub).Error
}

func (r *repository) DeleteSubscription(ctx context.Context, channelID, userID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&domain.ChannelSubscription{}).Error
}

func (r *repository) ListSubscriptions(ctx context.Context, channelID snowflake.ID) ([]domain.ChannelSubscription, error) {
	var subs []domain.ChannelSubscription
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("user_id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *repository) ListUserSubscriptions(ctx context.Context, userID snowflake.ID) ([]domain.ChannelSubscription, error) {
	var subs []domain.ChannelSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("channel_id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *repository) CurrentEmployment(ctx context.Context, userID snowflake.ID) (*domain.Employment, error) {
	var employment domain.Employment
	result := r.db.WithContext(ctx).Raw(
		`SELECT a.user_id, a.organization_unit_id AS unit_id, a.position_id, p.is_managerial, p.can_manage_subordinates
		 FROM appointments a
		 JOIN positions p ON p.id = a.position_id
		 WHERE a.user_id = ? AND a.is_current = true
		 LIMIT 1`,
		userID,
	).Scan(&employment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &employment, nil
}

func (r *repository) ListSubtreeEmployments(ctx context.Context, unitPath string) ([]domain.Employment, error) {
	var employments []domain.Employment
	err := r.db.WithContext(ctx).Raw(
		`SELECT a.user_id, a.organization_unit_id AS unit_id, a.position_id, p.is_managerial, p.can_manage_subordinates
		 FROM appointments a
		 JOIN positions p ON p.id = a.position_id
		 JOIN organization_units u ON u.id = a.organization_unit_id
		 WHERE a.is_current = true AND (u.path = ? OR u.path LIKE ?)`,
		unitPath, unitPath+".%",
	).Scan(&employments).Error
	return employments, err
}
