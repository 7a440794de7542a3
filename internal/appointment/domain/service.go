package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment_not_found")
	ErrNoCurrentAppointment = errors.New("no_current_appointment")
	ErrAppointmentConflict  = errors.New("appointment_conflict")
	ErrSamePosition         = errors.New("already_holds_position")
)

// AssignRequest moves a user into a position. A user holding another
// position is transferred: the old appointment closes and the new one
// opens in the same transaction.
type AssignRequest struct {
	UserID         snowflake.ID  `json:"user_id"`
	PositionID     snowflake.ID  `json:"position_id"`
	AppointedBy    *snowflake.ID `json:"appointed_by,omitempty"`
	OrderReference *string       `json:"order_reference,omitempty"`
}

// DismissRequest ends a user's active appointment. Date backdates the
// end of service; when unset the clock decides.
type DismissRequest struct {
	UserID      snowflake.ID  `json:"user_id"`
	Reason      string        `json:"reason,omitempty"`
	Date        *time.Time    `json:"date,omitempty"`
	DismissedBy *snowflake.ID `json:"dismissed_by,omitempty"`
}

// MembershipSynchronizer propagates appointment changes into channel
// subscriptions. Wired from the channel module; failures never roll
// back the ledger write.
type MembershipSynchronizer interface {
	SyncAppointmentChange(ctx context.Context, userID snowflake.ID, oldUnitID, newUnitID *snowflake.ID) error
}

// Service exposes the appointment ledger operations.
type Service interface {
	Assign(ctx context.Context, req AssignRequest) (*Appointment, error)
	Dismiss(ctx context.Context, req DismissRequest) (*Appointment, error)

	// DismissByAppointment dismisses through the appointment row
	// itself; the row must still be the holder's current appointment.
	DismissByAppointment(ctx context.Context, appointmentID snowflake.ID, req DismissRequest) (*Appointment, error)
	GetCurrent(ctx context.Context, userID snowflake.ID) (*Appointment, error)
	History(ctx context.Context, userID snowflake.ID) ([]Appointment, error)
}
