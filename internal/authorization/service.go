// Package authorization enforces role-based access over the hierarchy
// API. Roles are the derived system roles, never assigned directly.
package authorization

import (
	"context"
	"errors"
)

// Guarded objects.
const (
	ObjectStructure   = "hierarchy.structure"
	ObjectPosition    = "position"
	ObjectAppointment = "appointment"
	ObjectChannel     = "channel"
	ObjectAuditLog    = "audit_log"
)

// Actions.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionAppointmentAssign  = "appointment.assign"
	ActionAppointmentDismiss = "appointment.dismiss"

	ActionChannelResync = "channel.resync"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// Service answers "may this actor perform this action".
type Service interface {
	Authorize(ctx context.Context, actor string, object string, action string) error
}
