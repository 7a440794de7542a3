package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/orgtree/domain"
)

type repository struct {
	db *gorm.DB
}

// New constructs the organization unit repository.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, unit *domain.OrganizationUnit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.OrganizationUnit, error) {
	var unit domain.OrganizationUnit
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&unit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnitNotFound
		}
		return nil, err
	}
	return &unit, nil
}

func (r *repository) Update(ctx context.Context, unit *domain.OrganizationUnit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

func (r *repository) ListByPathPrefix(ctx context.Context, prefix string) ([]domain.OrganizationUnit, error) {
	var units []domain.OrganizationUnit
	err := r.db.WithContext(ctx).
		Where("path = ? OR path LIKE ?", prefix, prefix+".%").
		Order("path ASC, order_index ASC").
		Find(&units).Error
	return units, err
}

func (r *repository) ListRoots(ctx context.Context) ([]domain.OrganizationUnit, error) {
	var units []domain.OrganizationUnit
	err := r.db.WithContext(ctx).
		Where("parent_id IS NULL").
		Order("order_index ASC, id ASC").
		Find(&units).Error
	return units, err
}

func (r *repository) ListChildren(ctx context.Context, parentID snowflake.ID) ([]domain.OrganizationUnit, error) {
	var units []domain.OrganizationUnit
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("order_index ASC, id ASC").
		Find(&units).Error
	return units, err
}

func (r *repository) CountActiveChildren(ctx context.Context, parentID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.OrganizationUnit{}).
		Where("parent_id = ? AND active = ?", parentID, true).
		Count(&count).Error
	return count, err
}

func (r *repository) NextOrderIndex(ctx context.Context, parentID *snowflake.ID) (int, error) {
	var max *int
	query := r.db.WithContext(ctx).
		Model(&domain.OrganizationUnit{}).
		Select("MAX(order_index)")
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if err := query.Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

func (r *repository) SetActive(ctx context.Context, id snowflake.ID, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&domain.OrganizationUnit{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active":     active,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}
