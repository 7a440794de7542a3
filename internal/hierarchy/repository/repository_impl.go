package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/hierarchy/domain"
)

const placementSelect = `
	SELECT a.user_id,
	       usr.login,
	       usr.full_name,
	       a.position_id,
	       a.position_title,
	       p.reports_to_id,
	       p.is_managerial,
	       a.organization_unit_id AS unit_id,
	       u.name AS unit_name,
	       u.path AS unit_path
	FROM appointments a
	JOIN positions p ON p.id = a.position_id
	JOIN organization_units u ON u.id = a.organization_unit_id
	JOIN users usr ON usr.id = a.user_id
	WHERE a.is_current = true`

type repository struct {
	db *gorm.DB
}

// New constructs the hierarchy read repository.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CurrentByUser(ctx context.Context, userID snowflake.ID) (*domain.Placement, error) {
	var placement domain.Placement
	result := r.db.WithContext(ctx).
		Raw(placementSelect+` AND a.user_id = ? LIMIT 1`, userID).
		Scan(&placement)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrUserNotPlaced
	}
	return &placement, nil
}

func (r *repository) HoldersOfPosition(ctx context.Context, positionID snowflake.ID) ([]domain.Placement, error) {
	var placements []domain.Placement
	err := r.db.WithContext(ctx).
		Raw(placementSelect+` AND a.position_id = ? ORDER BY a.user_id ASC`, positionID).
		Scan(&placements).Error
	return placements, err
}

func (r *repository) HoldersReportingTo(ctx context.Context, positionID snowflake.ID) ([]domain.Placement, error) {
	var placements []domain.Placement
	err := r.db.WithContext(ctx).
		Raw(placementSelect+` AND p.reports_to_id = ? ORDER BY a.user_id ASC`, positionID).
		Scan(&placements).Error
	return placements, err
}

func (r *repository) ManagerialInUnit(ctx context.Context, unitID snowflake.ID) ([]domain.Placement, error) {
	var placements []domain.Placement
	err := r.db.WithContext(ctx).
		Raw(placementSelect+` AND a.organization_unit_id = ? AND p.is_managerial = true ORDER BY a.user_id ASC`, unitID).
		Scan(&placements).Error
	return placements, err
}

func (r *repository) EmployeesByUnitPath(ctx context.Context, unitPath string, includeDescendants bool) ([]domain.Placement, error) {
	var placements []domain.Placement
	query := placementSelect + ` AND u.path = ? ORDER BY u.path ASC, a.user_id ASC`
	args := []any{unitPath}
	if includeDescendants {
		query = placementSelect + ` AND (u.path = ? OR u.path LIKE ?) ORDER BY u.path ASC, a.user_id ASC`
		args = []any{unitPath, unitPath + ".%"}
	}
	err := r.db.WithContext(ctx).
		Raw(query, args...).
		Scan(&placements).Error
	return placements, err
}
