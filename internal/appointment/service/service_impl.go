package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/appointment/domain"
	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/config"
	"github.com/stateline/govcomm/internal/events"
	identity "github.com/stateline/govcomm/internal/identity/domain"
	"github.com/stateline/govcomm/internal/observability/metrics"
	orgtree "github.com/stateline/govcomm/internal/orgtree/domain"
	position "github.com/stateline/govcomm/internal/position/domain"
	"github.com/stateline/govcomm/internal/role"
	"github.com/stateline/govcomm/pkg/db"
)

// assignRetries bounds the optimistic retry loop when two writers race
// on the same user's current-appointment slot.
const assignRetries = 3

type service struct {
	db           *gorm.DB
	repo         domain.Repository
	positions    position.Service
	units        orgtree.Repository
	users        identity.Service
	holder       *config.HierarchyConfigHolder
	node         *snowflake.Node
	clock        clock.Clock
	publisher    events.Publisher
	metrics      *metrics.Metrics
	synchronizer domain.MembershipSynchronizer
}

// Option customizes the service.
type Option func(*service)

// WithMembershipSynchronizer wires the best-effort channel cascade that
// follows a ledger write.
func WithMembershipSynchronizer(sync domain.MembershipSynchronizer) Option {
	return func(s *service) { s.synchronizer = sync }
}

// New constructs the appointment ledger service.
func New(
	gdb *gorm.DB,
	repo domain.Repository,
	positions position.Service,
	units orgtree.Repository,
	users identity.Service,
	holder *config.HierarchyConfigHolder,
	node *snowflake.Node,
	clk clock.Clock,
	publisher events.Publisher,
	m *metrics.Metrics,
	opts ...Option,
) domain.Service {
	s := &service{
		db:        gdb,
		repo:      repo,
		positions: positions,
		units:     units,
		users:     users,
		holder:    holder,
		node:      node,
		clock:     clk,
		publisher: publisher,
		metrics:   m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Assign(ctx context.Context, req domain.AssignRequest) (*domain.Appointment, error) {
	if _, err := s.users.RequireActive(ctx, req.UserID); err != nil {
		return nil, err
	}
	pos, err := s.positions.RequireAssignable(ctx, req.PositionID)
	if err != nil {
		return nil, err
	}
	unit, err := s.units.Get(ctx, pos.OrganizationUnitID)
	if err != nil {
		return nil, err
	}
	if !unit.Active {
		return nil, orgtree.ErrUnitInactive
	}

	resolver := role.NewResolver(s.holder)
	newRole, _ := resolver.Resolve(&role.AppointmentSnapshot{
		PositionTitle: pos.Title,
		UnitType:      unit.Type,
		UnitLevel:     unit.HierarchyLevel,
	})

	var (
		appointment *domain.Appointment
		oldUnitID   *snowflake.ID
	)
	var lastErr error
	for attempt := 0; attempt < assignRetries; attempt++ {
		appointment = nil
		oldUnitID = nil
		lastErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			current, err := repo.GetCurrent(ctx, req.UserID)
			if err != nil && !errors.Is(err, domain.ErrNoCurrentAppointment) {
				return err
			}
			if current != nil {
				if current.PositionID == req.PositionID {
					return domain.ErrSamePosition
				}
				id := current.OrganizationUnitID
				oldUnitID = &id
				if _, err := repo.CloseCurrent(ctx, req.UserID, s.clock.Now(), nil); err != nil {
					return err
				}
			}

			now := s.clock.Now()
			appointment = &domain.Appointment{
				ID:                 s.node.Generate(),
				UserID:             req.UserID,
				PositionID:         req.PositionID,
				OrganizationUnitID: pos.OrganizationUnitID,
				PositionTitle:      pos.Title,
				IsCurrent:          true,
				StartDate:          now,
				AppointedBy:        req.AppointedBy,
				OrderReference:     req.OrderReference,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if err := repo.Insert(ctx, appointment); err != nil {
				return err
			}
			if err := s.users.SetSystemRole(ctx, tx, req.UserID, string(newRole)); err != nil {
				return err
			}
			return s.publisher.Publish(ctx, tx, events.TopicAppointmentAssigned, map[string]any{
				"appointment_id": appointment.ID.String(),
				"user_id":        req.UserID.String(),
				"position_id":    req.PositionID.String(),
				"unit_id":        pos.OrganizationUnitID.String(),
				"role":           string(newRole),
			})
		})
		if lastErr == nil {
			break
		}
		if !db.IsDuplicateKeyErr(lastErr) {
			return nil, lastErr
		}
		// Another writer claimed the current-appointment slot first.
		s.metrics.RecordAppointmentConflict()
	}
	if lastErr != nil {
		return nil, domain.ErrAppointmentConflict
	}

	s.metrics.RecordRoleRecompute(string(newRole))
	s.cascadeMembership(ctx, req.UserID, oldUnitID, &pos.OrganizationUnitID)
	return appointment, nil
}

func (s *service) Dismiss(ctx context.Context, req domain.DismissRequest) (*domain.Appointment, error) {
	var (
		closed    *domain.Appointment
		oldUnitID snowflake.ID
	)
	resolver := role.NewResolver(s.holder)
	guestRole, _ := resolver.Resolve(nil)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.GetCurrent(ctx, req.UserID)
		if err != nil {
			return err
		}
		oldUnitID = current.OrganizationUnitID

		now := s.clock.Now()
		if req.Date != nil {
			now = *req.Date
		}
		var reason *string
		if req.Reason != "" {
			reason = &req.Reason
		}
		affected, err := repo.CloseCurrent(ctx, req.UserID, now, reason)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNoCurrentAppointment
		}
		current.IsCurrent = false
		current.EndDate = &now
		current.DismissalReason = reason
		closed = current

		if err := s.users.SetSystemRole(ctx, tx, req.UserID, string(guestRole)); err != nil {
			return err
		}
		return s.publisher.Publish(ctx, tx, events.TopicAppointmentDismissed, map[string]any{
			"appointment_id": current.ID.String(),
			"user_id":        req.UserID.String(),
			"unit_id":        oldUnitID.String(),
			"reason":         req.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRoleRecompute(string(guestRole))
	s.cascadeMembership(ctx, req.UserID, &oldUnitID, nil)
	return closed, nil
}

func (s *service) DismissByAppointment(ctx context.Context, appointmentID snowflake.ID, req domain.DismissRequest) (*domain.Appointment, error) {
	appointment, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appointment.IsCurrent {
		return nil, domain.ErrNoCurrentAppointment
	}
	req.UserID = appointment.UserID
	return s.Dismiss(ctx, req)
}

func (s *service) GetCurrent(ctx context.Context, userID snowflake.ID) (*domain.Appointment, error) {
	return s.repo.GetCurrent(ctx, userID)
}

func (s *service) History(ctx context.Context, userID snowflake.ID) ([]domain.Appointment, error) {
	return s.repo.History(ctx, userID)
}

func (s *service) cascadeMembership(ctx context.Context, userID snowflake.ID, oldUnitID, newUnitID *snowflake.ID) {
	if s.synchronizer == nil {
		return
	}
	if err := s.synchronizer.SyncAppointmentChange(ctx, userID, oldUnitID, newUnitID); err != nil {
		zap.L().Warn("channel membership cascade failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
