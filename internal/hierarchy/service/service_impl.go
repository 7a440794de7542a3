package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/stateline/govcomm/internal/hierarchy/domain"
	orgtree "github.com/stateline/govcomm/internal/orgtree/domain"
)

type service struct {
	repo  domain.Repository
	units orgtree.Repository
}

// New constructs the hierarchy query service.
func New(repo domain.Repository, units orgtree.Repository) domain.Service {
	return &service{
		repo:  repo,
		units: units,
	}
}

func (s *service) DirectSupervisor(ctx context.Context, userID snowflake.ID) (*domain.Placement, error) {
	placement, err := s.repo.CurrentByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotPlaced) {
			return nil, nil
		}
		return nil, err
	}
	return s.supervisorOf(ctx, placement)
}

// supervisorOf resolves the reporting line: the holder of the position
// the placement reports to, falling back to the nearest managerial
// appointment up the unit's ancestor chain.
func (s *service) supervisorOf(ctx context.Context, placement *domain.Placement) (*domain.Placement, error) {
	if placement.ReportsToID != nil {
		holders, err := s.repo.HoldersOfPosition(ctx, *placement.ReportsToID)
		if err != nil {
			return nil, err
		}
		if len(holders) > 0 {
			return &holders[0], nil
		}
		// The supervising position is vacant; climb units instead.
	}

	chain := orgtree.PathIDs(placement.UnitPath)
	for i := len(chain) - 1; i >= 0; i-- {
		unitID := chain[i]
		managers, err := s.repo.ManagerialInUnit(ctx, unitID)
		if err != nil {
			return nil, err
		}
		for j := range managers {
			if managers[j].UserID == placement.UserID {
				continue
			}
			if unitID == placement.UnitID && !placement.IsManagerial {
				return &managers[j], nil
			}
			if unitID != placement.UnitID {
				return &managers[j], nil
			}
		}
	}
	return nil, nil
}

func (s *service) Subordinates(ctx context.Context, userID snowflake.ID, transitive bool) ([]domain.Placement, error) {
	placement, err := s.repo.CurrentByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotPlaced) {
			return []domain.Placement{}, nil
		}
		return nil, err
	}

	direct, err := s.repo.HoldersReportingTo(ctx, placement.PositionID)
	if err != nil {
		return nil, err
	}
	if !transitive {
		return direct, nil
	}

	// Breadth-first over the reports_to graph. The visited set guards
	// against reports_to cycles introduced by bad catalog edits.
	visited := map[snowflake.ID]bool{placement.PositionID: true}
	var result []domain.Placement
	queue := direct
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next.PositionID] {
			continue
		}
		visited[next.PositionID] = true
		result = append(result, next)

		deeper, err := s.repo.HoldersReportingTo(ctx, next.PositionID)
		if err != nil {
			return nil, err
		}
		queue = append(queue, deeper...)
	}
	if result == nil {
		result = []domain.Placement{}
	}
	return result, nil
}

func (s *service) SubtreeEmployees(ctx context.Context, unitID snowflake.ID, includeDescendants bool) ([]domain.Placement, error) {
	unit, err := s.units.Get(ctx, unitID)
	if err != nil {
		return nil, err
	}
	return s.repo.EmployeesByUnitPath(ctx, unit.Path, includeDescendants)
}

func (s *service) UserHierarchy(ctx context.Context, userID snowflake.ID) (*domain.Overview, error) {
	overview := &domain.Overview{Subordinates: []domain.Placement{}}

	placement, err := s.repo.CurrentByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotPlaced) {
			return overview, nil
		}
		return nil, err
	}
	overview.Placement = placement

	supervisor, err := s.supervisorOf(ctx, placement)
	if err != nil {
		zap.L().Warn("failed to resolve supervisor",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	} else {
		overview.Supervisor = supervisor
	}

	subordinates, err := s.repo.HoldersReportingTo(ctx, placement.PositionID)
	if err != nil {
		return nil, err
	}
	overview.Subordinates = subordinates
	return overview, nil
}
