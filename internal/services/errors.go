package services

import (
	"errors"
	"fmt"

	goa "goa.design/goa/v3/pkg"

	apperrors "precisionworks/pkg/errors"
)

// Error names carried by goa service errors. The HTTP layer maps them to
// status codes.
const (
	ErrNameBadRequest   = "bad_request"
	ErrNameUnauthorized = "unauthorized"
	ErrNameForbidden    = "forbidden"
	ErrNameNotFound     = "not_found"
	ErrNameConflict     = "conflict"
	ErrNameInternal     = "internal_error"
	ErrNameUnavailable  = "unavailable"
)

// BadRequest creates a properly formatted bad request error
func BadRequest(format string, args ...any) *goa.ServiceError {
	return goa.NewServiceError(fmt.Errorf(format, args...), ErrNameBadRequest, false, false, false)
}

// Unauthorized creates a properly formatted unauthorized error
func Unauthorized(format string, args ...any) *goa.ServiceError {
	return goa.NewServiceError(fmt.Errorf(format, args...), ErrNameUnauthorized, false, false, false)
}

// Forbidden creates a properly formatted forbidden error
func Forbidden(format string, args ...any) *goa.ServiceError {
	return goa.NewServiceError(fmt.Errorf(format, args...), ErrNameForbidden, false, false, false)
}

// NotFound creates a properly formatted not found error
func NotFound(format string, args ...any) *goa.ServiceError {
	return goa.NewServiceError(fmt.Errorf(format, args...), ErrNameNotFound, false, false, false)
}

// Unavailable reports a temporary failure the caller may retry
func Unavailable(format string, args ...any) *goa.ServiceError {
	return goa.NewServiceError(fmt.Errorf(format, args...), ErrNameUnavailable, false, true, false)
}

// Internal wraps an unexpected failure. The cause stays in the logs; callers
// only see msg.
func Internal(msg string) *goa.ServiceError {
	return goa.NewServiceError(fmt.Errorf("%s", msg), ErrNameInternal, false, false, true)
}

// FromAppError converts an application error from the lower layers into a goa
// service error. Errors without an application code become internal errors.
func FromAppError(err error, fallback string) *goa.ServiceError {
	msg := fallback
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	switch {
	case apperrors.IsValidation(err), apperrors.CodeOf(err) == apperrors.ErrCodeBadRequest:
		return BadRequest("%s", msg)
	case apperrors.IsNotFound(err):
		return NotFound("%s", msg)
	case apperrors.IsUnauthorized(err):
		return Unauthorized("%s", msg)
	case apperrors.IsForbidden(err):
		return Forbidden("%s", msg)
	case apperrors.IsConflict(err):
		return goa.NewServiceError(fmt.Errorf("%s", msg), ErrNameConflict, false, false, false)
	case apperrors.CodeOf(err) == apperrors.ErrCodeUnavailable:
		return Unavailable("%s", fallback)
	}
	return Internal(fallback)
}
