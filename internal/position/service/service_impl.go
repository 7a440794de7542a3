package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/clock"
	orgtree "github.com/stateline/govcomm/internal/orgtree/domain"
	"github.com/stateline/govcomm/internal/position/domain"
)

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	units orgtree.Repository
	node  *snowflake.Node
	clock clock.Clock
}

// New constructs the position catalog service.
func New(db *gorm.DB, repo domain.Repository, units orgtree.Repository, node *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{
		db:    db,
		repo:  repo,
		units: units,
		node:  node,
		clock: clk,
	}
}

func (s *service) CreatePosition(ctx context.Context, req domain.CreatePositionRequest) (*domain.Position, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.MaxHolders < 0 {
		return nil, domain.ErrInvalidMaxHolders
	}
	maxHolders := req.MaxHolders
	if maxHolders == 0 {
		maxHolders = 1
	}

	var position *domain.Position
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		units := s.units.WithTx(tx)

		unit, err := units.Get(ctx, req.OrganizationUnitID)
		if err != nil {
			if err == orgtree.ErrUnitNotFound {
				return domain.ErrInvalidUnit
			}
			return err
		}
		if !unit.Active {
			return domain.ErrInvalidUnit
		}
		if req.ReportsToID != nil {
			boss, err := repo.Get(ctx, *req.ReportsToID)
			if err != nil {
				if err == domain.ErrPositionNotFound {
					return domain.ErrInvalidReportsTo
				}
				return err
			}
			if !boss.Active || !boss.IsManagerial {
				return domain.ErrInvalidReportsTo
			}
		}

		now := s.clock.Now()
		position = &domain.Position{
			ID:                 s.node.Generate(),
			Title:              title,
			OrganizationUnitID: req.OrganizationUnitID,
			ReportsToID:        req.ReportsToID,
			IsManagerial:       req.IsManagerial,
			CanManageSubs:      req.CanManageSubs,
			CanAssignTasks:     req.CanAssignTasks,
			CanDiscipline:      req.CanDiscipline,
			MaxHolders:         maxHolders,
			Active:             true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return repo.Insert(ctx, position)
	})
	if err != nil {
		return nil, err
	}
	return position, nil
}

func (s *service) GetPosition(ctx context.Context, id snowflake.ID) (*domain.Position, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) UpdatePosition(ctx context.Context, id snowflake.ID, req domain.UpdatePositionRequest) (*domain.Position, error) {
	var position *domain.Position
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return domain.ErrInvalidTitle
			}
			current.Title = title
		}
		if req.ReportsToID != nil {
			if *req.ReportsToID == id {
				return domain.ErrInvalidReportsTo
			}
			if _, err := repo.Get(ctx, *req.ReportsToID); err != nil {
				return domain.ErrInvalidReportsTo
			}
			current.ReportsToID = req.ReportsToID
		}
		if req.IsManagerial != nil {
			current.IsManagerial = *req.IsManagerial
		}
		if req.CanManageSubs != nil {
			current.CanManageSubs = *req.CanManageSubs
		}
		if req.CanAssignTasks != nil {
			current.CanAssignTasks = *req.CanAssignTasks
		}
		if req.CanDiscipline != nil {
			current.CanDiscipline = *req.CanDiscipline
		}
		if req.MaxHolders != nil {
			if *req.MaxHolders < 1 {
				return domain.ErrInvalidMaxHolders
			}
			current.MaxHolders = *req.MaxHolders
		}
		if req.Active != nil {
			current.Active = *req.Active
		}
		current.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		position = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return position, nil
}

func (s *service) ListByUnit(ctx context.Context, unitID snowflake.ID) ([]domain.Position, error) {
	return s.repo.ListByUnit(ctx, unitID)
}

func (s *service) RequireAssignable(ctx context.Context, id snowflake.ID) (*domain.Position, error) {
	position, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !position.Active {
		return nil, domain.ErrPositionInactive
	}
	holders, err := s.repo.CountCurrentHolders(ctx, id)
	if err != nil {
		return nil, err
	}
	if holders >= int64(position.MaxHolders) {
		return nil, domain.ErrPositionOccupied
	}
	return position, nil
}
