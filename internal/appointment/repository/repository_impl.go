package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/appointment/domain"
)

type repository struct {
	db *gorm.DB
}

// New constructs the appointment repository.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, appointment *domain.Appointment) error {
	return r.db.WithContext(ctx).Create(appointment).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Appointment, error) {
	var appointment domain.Appointment
	err := r.db.WithContext(ctx).First(&appointment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *repository) GetCurrent(ctx context.Context, userID snowflake.ID) (*domain.Appointment, error) {
	var appointment domain.Appointment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_current = ?", userID, true).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoCurrentAppointment
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *repository) CloseCurrent(ctx context.Context, userID snowflake.ID, endDate time.Time, reason *string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("user_id = ? AND is_current = ?", userID, true).
		Updates(map[string]any{
			"is_current":       false,
			"end_date":         endDate,
			"dismissal_reason": reason,
			"updated_at":       endDate,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) History(ctx context.Context, userID snowflake.ID) ([]domain.Appointment, error) {
	var appointments []domain.Appointment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_current DESC, start_date DESC, id DESC").
		Find(&appointments).Error
	return appointments, err
}
