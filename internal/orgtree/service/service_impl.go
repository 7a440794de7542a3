package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/events"
	"github.com/stateline/govcomm/internal/orgtree/domain"
	"github.com/stateline/govcomm/pkg/db"
)

// createRetries bounds how often a structural insert is retried after
// losing a sibling-ordinal race.
const createRetries = 3

type service struct {
	db          *gorm.DB
	repo        domain.Repository
	node        *snowflake.Node
	clock       clock.Clock
	publisher   events.Publisher
	provisioner domain.ChannelProvisioner
}

// Option customizes the service.
type Option func(*service)

// WithChannelProvisioner wires the best-effort channel auto-creation
// that follows a structural insert.
func WithChannelProvisioner(p domain.ChannelProvisioner) Option {
	return func(s *service) { s.provisioner = p }
}

// New constructs the organization tree service.
func New(db *gorm.DB, repo domain.Repository, node *snowflake.Node, clk clock.Clock, publisher events.Publisher, opts ...Option) domain.Service {
	s := &service{
		db:        db,
		repo:      repo,
		node:      node,
		clock:     clk,
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateUnit(ctx context.Context, req domain.CreateUnitRequest) (*domain.OrganizationUnit, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidUnitName
	}
	if !domain.KnownType(req.Type) {
		return nil, domain.ErrInvalidUnitType
	}

	var unit *domain.OrganizationUnit
	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		unit = nil
		lastErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			level := 0
			parentPath := ""
			if req.ParentID != nil {
				parent, err := repo.Get(ctx, *req.ParentID)
				if err != nil {
					if err == domain.ErrUnitNotFound {
						return domain.ErrParentNotFound
					}
					return err
				}
				if !parent.Active {
					return domain.ErrParentInactive
				}
				level = parent.HierarchyLevel + 1
				parentPath = parent.Path
			}
			if !domain.ValidTypeLevel(req.Type, level) {
				return domain.ErrInvalidUnitType
			}

			orderIndex := 0
			if req.OrderIndex != nil {
				orderIndex = *req.OrderIndex
			} else {
				next, err := repo.NextOrderIndex(ctx, req.ParentID)
				if err != nil {
					return err
				}
				orderIndex = next
			}

			id := s.node.Generate()
			now := s.clock.Now()
			unit = &domain.OrganizationUnit{
				ID:             id,
				Name:           name,
				Type:           req.Type,
				HierarchyLevel: level,
				ParentID:       req.ParentID,
				Path:           domain.BuildPath(parentPath, id),
				OrderIndex:     orderIndex,
				Active:         true,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := repo.Insert(ctx, unit); err != nil {
				return err
			}
			return s.publisher.Publish(ctx, tx, events.TopicOrgUnitCreated, map[string]any{
				"unit_id":   unit.ID.String(),
				"name":      unit.Name,
				"type":      unit.Type,
				"level":     unit.HierarchyLevel,
				"parent_id": req.ParentID,
			})
		})
		if lastErr == nil {
			break
		}
		if !db.IsDuplicateKeyErr(lastErr) {
			return nil, lastErr
		}
		// An explicit ordinal collides with a sibling; only an
		// auto-assigned one can be recomputed and retried.
		if req.OrderIndex != nil {
			return nil, domain.ErrOrderIndexTaken
		}
	}
	if lastErr != nil {
		return nil, domain.ErrOrderIndexTaken
	}

	if s.provisioner != nil {
		if err := s.provisioner.EnsureUnitChannel(ctx, unit.ID); err != nil {
			zap.L().Warn("failed to auto-create unit channel",
				zap.String("unit_id", unit.ID.String()),
				zap.Error(err),
			)
		}
	}
	return unit, nil
}

func (s *service) GetUnit(ctx context.Context, id snowflake.ID) (*domain.OrganizationUnit, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) UpdateUnit(ctx context.Context, id snowflake.ID, req domain.UpdateUnitRequest) (*domain.OrganizationUnit, error) {
	var unit *domain.OrganizationUnit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidUnitName
			}
			current.Name = name
		}
		if req.OrderIndex != nil {
			current.OrderIndex = *req.OrderIndex
		}
		if req.Active != nil {
			// Deactivation obeys the same guard as delete: active
			// children keep their parent active.
			if !*req.Active && current.Active {
				activeChildren, err := repo.CountActiveChildren(ctx, id)
				if err != nil {
					return err
				}
				if activeChildren > 0 {
					return domain.ErrUnitHasChildren
				}
			}
			current.Active = *req.Active
		}
		current.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, current); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrOrderIndexTaken
			}
			return err
		}
		unit = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *service) DeleteUnit(ctx context.Context, id snowflake.ID, force bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		unit, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		activeChildren, err := repo.CountActiveChildren(ctx, id)
		if err != nil {
			return err
		}
		if activeChildren > 0 && !force {
			return domain.ErrUnitHasChildren
		}

		targets := []domain.OrganizationUnit{*unit}
		if force {
			subtree, err := repo.ListByPathPrefix(ctx, unit.Path)
			if err != nil {
				return err
			}
			targets = subtree
		}
		// Deepest first so no unit is deactivated before its children.
		sort.Slice(targets, func(i, j int) bool {
			return len(targets[i].Path) > len(targets[j].Path)
		})
		for i := range targets {
			if !targets[i].Active {
				continue
			}
			if err := repo.SetActive(ctx, targets[i].ID, false); err != nil {
				return err
			}
			if err := s.publisher.Publish(ctx, tx, events.TopicOrgUnitDeleted, map[string]any{
				"unit_id": targets[i].ID.String(),
				"name":    targets[i].Name,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) GetSubtree(ctx context.Context, rootID *snowflake.ID, maxDepth int) ([]*domain.TreeNode, error) {
	var units []domain.OrganizationUnit
	baseLevel := 0
	if rootID != nil {
		root, err := s.repo.Get(ctx, *rootID)
		if err != nil {
			return nil, err
		}
		baseLevel = root.HierarchyLevel
		units, err = s.repo.ListByPathPrefix(ctx, root.Path)
		if err != nil {
			return nil, err
		}
	} else {
		roots, err := s.repo.ListRoots(ctx)
		if err != nil {
			return nil, err
		}
		for i := range roots {
			subtree, err := s.repo.ListByPathPrefix(ctx, roots[i].Path)
			if err != nil {
				return nil, err
			}
			units = append(units, subtree...)
		}
	}

	nodes := make(map[snowflake.ID]*domain.TreeNode, len(units))
	var result []*domain.TreeNode
	for i := range units {
		unit := units[i]
		if !unit.Active {
			continue
		}
		if maxDepth > 0 && unit.HierarchyLevel-baseLevel > maxDepth {
			continue
		}
		node := &domain.TreeNode{Unit: unit}
		nodes[unit.ID] = node
		if unit.ParentID != nil {
			if parent, ok := nodes[*unit.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		result = append(result, node)
	}
	for _, node := range nodes {
		sort.SliceStable(node.Children, func(i, j int) bool {
			return node.Children[i].Unit.OrderIndex < node.Children[j].Unit.OrderIndex
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Unit.OrderIndex < result[j].Unit.OrderIndex
	})
	return result, nil
}

func (s *service) AncestorChain(ctx context.Context, id snowflake.ID) ([]snowflake.ID, error) {
	unit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.PathIDs(unit.Path), nil
}
