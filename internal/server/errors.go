package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	appointmentdomain "github.com/stateline/govcomm/internal/appointment/domain"
	auditdomain "github.com/stateline/govcomm/internal/audit/domain"
	"github.com/stateline/govcomm/internal/authorization"
	channeldomain "github.com/stateline/govcomm/internal/channel/domain"
	identitydomain "github.com/stateline/govcomm/internal/identity/domain"
	orgtreedomain "github.com/stateline/govcomm/internal/orgtree/domain"
	positiondomain "github.com/stateline/govcomm/internal/position/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not_found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
	ErrInternal        = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Code:    err.Error(),
					Message: "invalid value",
				},
			},
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, orgtreedomain.ErrInvalidUnitName),
		errors.Is(err, orgtreedomain.ErrInvalidUnitType),
		errors.Is(err, positiondomain.ErrInvalidTitle),
		errors.Is(err, positiondomain.ErrInvalidUnit),
		errors.Is(err, positiondomain.ErrInvalidReportsTo),
		errors.Is(err, positiondomain.ErrInvalidMaxHolders),
		errors.Is(err, identitydomain.ErrInvalidUser),
		errors.Is(err, identitydomain.ErrInvalidRole),
		errors.Is(err, channeldomain.ErrInvalidChannel),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orgtreedomain.ErrUnitNotFound),
		errors.Is(err, orgtreedomain.ErrParentNotFound),
		errors.Is(err, positiondomain.ErrPositionNotFound),
		errors.Is(err, appointmentdomain.ErrAppointmentNotFound),
		errors.Is(err, appointmentdomain.ErrNoCurrentAppointment),
		errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, channeldomain.ErrChannelNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, orgtreedomain.ErrUnitHasChildren),
		errors.Is(err, orgtreedomain.ErrOrderIndexTaken),
		errors.Is(err, orgtreedomain.ErrParentInactive),
		errors.Is(err, orgtreedomain.ErrUnitInactive),
		errors.Is(err, positiondomain.ErrPositionInactive),
		errors.Is(err, positiondomain.ErrPositionOccupied),
		errors.Is(err, identitydomain.ErrUserInactive),
		errors.Is(err, appointmentdomain.ErrAppointmentConflict),
		errors.Is(err, appointmentdomain.ErrSamePosition):
		return true
	default:
		return false
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if err != nil {
		code = err.Error()
	}
	return payload.Type, code
}
