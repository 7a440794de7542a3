package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/stateline/govcomm/internal/identity/domain"
	"github.com/stateline/govcomm/internal/role"
	"gorm.io/gorm"
)

type service struct {
	repo domain.Repository
}

func NewService(repo domain.Repository) domain.Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if id == 0 {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.Get(ctx, id)
}

func (s *service) RequireActive(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

func (s *service) SetSystemRole(ctx context.Context, tx *gorm.DB, id snowflake.ID, roleName string) error {
	if id == 0 {
		return domain.ErrInvalidUser
	}
	if !role.Known(role.SystemRole(roleName)) {
		return domain.ErrInvalidRole
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	return repo.UpdateSystemRole(ctx, id, roleName)
}
