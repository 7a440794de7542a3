package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/channel/domain"
	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/events"
	"github.com/stateline/govcomm/internal/observability/metrics"
	orgtree "github.com/stateline/govcomm/internal/orgtree/domain"
	"github.com/stateline/govcomm/pkg/db"
)

type service struct {
	db        *gorm.DB
	repo      domain.Repository
	units     orgtree.Repository
	node      *snowflake.Node
	clock     clock.Clock
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// New constructs the channel membership service.
func New(
	gdb *gorm.DB,
	repo domain.Repository,
	units orgtree.Repository,
	node *snowflake.Node,
	clk clock.Clock,
	publisher events.Publisher,
	m *metrics.Metrics,
) domain.Service {
	return &service{
		db:        gdb,
		repo:      repo,
		units:     units,
		node:      node,
		clock:     clk,
		publisher: publisher,
		metrics:   m,
	}
}

func (s *service) EnsureUnitChannel(ctx context.Context, unitID snowflake.ID) error {
	if _, err := s.repo.GetChannelByUnit(ctx, unitID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrChannelNotFound) {
		return err
	}

	unit, err := s.units.Get(ctx, unitID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	channel := &domain.Channel{
		ID:                 s.node.Generate(),
		OrganizationUnitID: unitID,
		Name:               unit.Name,
		Slug:               slug.Make(unit.Name),
		AutoCreated:        true,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.InsertChannel(ctx, channel); err != nil {
		// A concurrent creator already won the unique index race.
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}

	// Seed the membership from the ledger; a unit that gets its channel
	// late may already have staff. Failures wait for a manual resync.
	if _, err := s.SyncOrganizationChannelMembership(ctx, unitID); err != nil {
		zap.L().Warn("initial channel membership fill failed",
			zap.String("unit_id", unitID.String()),
			zap.String("channel_id", channel.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

func (s *service) GetChannelByUnit(ctx context.Context, unitID snowflake.ID) (*domain.Channel, error) {
	return s.repo.GetChannelByUnit(ctx, unitID)
}

func (s *service) ListUserSubscriptions(ctx context.Context, userID snowflake.ID) ([]domain.ChannelSubscription, error) {
	return s.repo.ListUserSubscriptions(ctx, userID)
}

func (s *service) SyncAppointmentChange(ctx context.Context, userID snowflake.ID, oldUnitID, newUnitID *snowflake.ID) error {
	oldChain := s.chainOf(ctx, oldUnitID)
	newChain := s.chainOf(ctx, newUnitID)

	inNew := make(map[snowflake.ID]bool, len(newChain))
	for _, id := range newChain {
		inNew[id] = true
	}

	homeRole := domain.SubscriptionSubscriber
	if newUnitID != nil {
		if employment, err := s.repo.CurrentEmployment(ctx, userID); err == nil && employment != nil && employment.UnitID == *newUnitID {
			homeRole = employment.HomeRole()
		}
	}

	inOld := make(map[snowflake.ID]bool, len(oldChain))
	for _, id := range oldChain {
		inOld[id] = true
	}

	var failures []error
	removed, applied := 0, 0
	for _, unitID := range oldChain {
		if inNew[unitID] {
			continue
		}
		if err := s.unsubscribe(ctx, unitID, userID); err != nil {
			failures = append(failures, err)
			continue
		}
		removed++
	}
	for _, unitID := range newChain {
		isHome := newUnitID != nil && unitID == *newUnitID
		// Channels in both chains stay as they are, except the home
		// channel whose role follows the new position.
		if inOld[unitID] && !isHome {
			continue
		}
		role := domain.SubscriptionSubscriber
		if isHome {
			role = homeRole
		}
		if err := s.subscribe(ctx, unitID, userID, role); err != nil {
			failures = append(failures, err)
			continue
		}
		applied++
	}

	if err := s.publisher.Publish(ctx, nil, events.TopicChannelSynced, map[string]any{
		"user_id":  userID.String(),
		"applied":  applied,
		"removed":  removed,
		"failures": len(failures),
	}); err != nil {
		zap.L().Warn("failed to publish channel sync event", zap.Error(err))
	}
	return errors.Join(failures...)
}

// chainOf resolves a unit's ancestor chain, swallowing lookup failures
// so a vanished unit never blocks the rest of the cascade.
func (s *service) chainOf(ctx context.Context, unitID *snowflake.ID) []snowflake.ID {
	if unitID == nil {
		return nil
	}
	unit, err := s.units.Get(ctx, *unitID)
	if err != nil {
		zap.L().Warn("cannot resolve unit for channel cascade",
			zap.String("unit_id", unitID.String()),
			zap.Error(err),
		)
		return nil
	}
	return orgtree.PathIDs(unit.Path)
}

func (s *service) subscribe(ctx context.Context, unitID, userID snowflake.ID, role string) error {
	if err := s.EnsureUnitChannel(ctx, unitID); err != nil {
		s.metrics.RecordSyncFailure("subscribe")
		return fmt.Errorf("ensure channel for unit %s: %w", unitID, err)
	}
	channel, err := s.repo.GetChannelByUnit(ctx, unitID)
	if err != nil {
		s.metrics.RecordSyncFailure("subscribe")
		return fmt.Errorf("load channel for unit %s: %w", unitID, err)
	}

	now := s.clock.Now()
	sub := &domain.ChannelSubscription{
		ID:        s.node.Generate(),
		ChannelID: channel.ID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		s.metrics.RecordSyncFailure("subscribe")
		s.markSyncError(ctx, channel.ID, err)
		return fmt.Errorf("subscribe user %s to channel %s: %w", userID, channel.ID, err)
	}
	if err := s.repo.RefreshSubscriberCount(ctx, channel.ID); err != nil {
		zap.L().Warn("failed to refresh subscriber count",
			zap.String("channel_id", channel.ID.String()),
			zap.Error(err),
		)
	}
	s.metrics.RecordSyncApplied("subscribe")
	s.clearSyncError(ctx, channel)
	return nil
}

func (s *service) unsubscribe(ctx context.Context, unitID, userID snowflake.ID) error {
	channel, err := s.repo.GetChannelByUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			return nil
		}
		s.metrics.RecordSyncFailure("unsubscribe")
		return fmt.Errorf("load channel for unit %s: %w", unitID, err)
	}
	if err := s.repo.DeleteSubscription(ctx, channel.ID, userID); err != nil {
		s.metrics.RecordSyncFailure("unsubscribe")
		s.markSyncError(ctx, channel.ID, err)
		return fmt.Errorf("unsubscribe user %s from channel %s: %w", userID, channel.ID, err)
	}
	if err := s.repo.RefreshSubscriberCount(ctx, channel.ID); err != nil {
		zap.L().Warn("failed to refresh subscriber count",
			zap.String("channel_id", channel.ID.String()),
			zap.Error(err),
		)
	}
	s.metrics.RecordSyncApplied("unsubscribe")
	s.clearSyncError(ctx, channel)
	return nil
}

func (s *service) markSyncError(ctx context.Context, channelID snowflake.ID, cause error) {
	message := cause.Error()
	if err := s.repo.SetLastSyncError(ctx, channelID, &message); err != nil {
		zap.L().Warn("failed to record channel sync error",
			zap.String("channel_id", channelID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) clearSyncError(ctx context.Context, channel *domain.Channel) {
	if channel.LastSyncError == nil {
		return
	}
	if err := s.repo.SetLastSyncError(ctx, channel.ID, nil); err != nil {
		zap.L().Warn("failed to clear channel sync error",
			zap.String("channel_id", channel.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) SyncOrganizationChannelMembership(ctx context.Context, unitID snowflake.ID) (*domain.ResyncReport, error) {
	unit, err := s.units.Get(ctx, unitID)
	if err != nil {
		s.metrics.RecordResyncRun("error")
		return nil, err
	}
	if err := s.EnsureUnitChannel(ctx, unitID); err != nil {
		s.metrics.RecordResyncRun("error")
		return nil, err
	}
	channel, err := s.repo.GetChannelByUnit(ctx, unitID)
	if err != nil {
		s.metrics.RecordResyncRun("error")
		return nil, err
	}

	employments, err := s.repo.ListSubtreeEmployments(ctx, unit.Path)
	if err != nil {
		s.metrics.RecordResyncRun("error")
		return nil, err
	}
	desired := make(map[snowflake.ID]string, len(employments))
	for _, e := range employments {
		role := domain.SubscriptionSubscriber
		if e.UnitID == unitID {
			role = e.HomeRole()
		}
		desired[e.UserID] = role
	}

	report := &domain.ResyncReport{ChannelID: channel.ID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		actual, err := repo.ListSubscriptions(ctx, channel.ID)
		if err != nil {
			return err
		}
		seen := make(map[snowflake.ID]string, len(actual))
		for _, sub := range actual {
			seen[sub.UserID] = sub.Role
		}

		now := s.clock.Now()
		for userID, role := range desired {
			existing, ok := seen[userID]
			if ok && existing == role {
				continue
			}
			sub := &domain.ChannelSubscription{
				ID:        s.node.Generate(),
				ChannelID: channel.ID,
				UserID:    userID,
				Role:      role,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := repo.UpsertSubscription(ctx, sub); err != nil {
				return err
			}
			if ok {
				report.Updated++
			} else {
				report.Added++
			}
		}
		for userID := range seen {
			if _, ok := desired[userID]; ok {
				continue
			}
			if err := repo.DeleteSubscription(ctx, channel.ID, userID); err != nil {
				return err
			}
			report.Removed++
		}
		if err := repo.SetLastSyncError(ctx, channel.ID, nil); err != nil {
			return err
		}
		return repo.RefreshSubscriberCount(ctx, channel.ID)
	})
	if err != nil {
		s.metrics.RecordResyncRun("error")
		return nil, err
	}

	s.metrics.RecordResyncRun("ok")
	zap.L().Info("channel membership resynced",
		zap.String("unit_id", unitID.String()),
		zap.String("channel_id", channel.ID.String()),
		zap.Int("added", report.Added),
		zap.Int("updated", report.Updated),
		zap.Int("removed", report.Removed),
	)
	return report, nil
}
