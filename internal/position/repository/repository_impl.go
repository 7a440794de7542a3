package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/position/domain"
)

type repository struct {
	db *gorm.DB
}

// New constructs the position repository.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, position *domain.Position) error {
	return r.db.WithContext(ctx).Create(position).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Position, error) {
	var position domain.Position
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, err
	}
	return &position, nil
}

func (r *repository) Update(ctx context.Context, position *domain.Position) error {
	return r.db.WithContext(ctx).Save(position).Error
}

func (r *repository) ListByUnit(ctx context.Context, unitID snowflake.ID) ([]domain.Position, error) {
	var positions []domain.Position
	err := r.db.WithContext(ctx).
		Where("organization_unit_id = ?", unitID).
		Order("id ASC").
		Find(&positions).Error
	return positions, err
}

func (r *repository) CountCurrentHolders(ctx context.Context, positionID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("appointments").
		Where("position_id = ? AND is_current = ?", positionID, true).
		Count(&count).Error
	return count, err
}
