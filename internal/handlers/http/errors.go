package http

import (
	"errors"

	"hudcast/internal/core/domain"
	apperrors "hudcast/pkg/errors"

	"github.com/gin-gonic/gin"
)

// fail attaches the mapped error to the gin context; the error handler
// middleware renders it. Domain sentinels map onto the error taxonomy in
// exactly one place so every endpoint agrees on status codes.
func fail(c *gin.Context, err error) {
	c.Error(mapDomainError(err))
	c.Abort()
}

func mapDomainError(err error) error {
	if appErr := apperrors.AsAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrStreamerActive):
		return apperrors.Conflict("another streamer currently holds the seat").WithCause(err)
	case errors.Is(err, domain.ErrNotStreamer):
		return apperrors.Forbidden("you are not the active streamer").WithCause(err)
	case errors.Is(err, domain.ErrNoActiveStreamer):
		return apperrors.Conflict("no active streamer to request the seat from").WithCause(err)
	case errors.Is(err, domain.ErrOwnSeatRequest):
		return apperrors.BadRequest("you already hold the seat").WithCause(err)
	case errors.Is(err, domain.ErrRequestPending):
		return apperrors.Conflict("another takeover request is already pending").WithCause(err)
	case errors.Is(err, domain.ErrRequestCooldown):
		return apperrors.RateLimited("request cooldown has not elapsed").WithCause(err)
	case errors.Is(err, domain.ErrNoPendingRequest):
		return apperrors.BadRequest("no pending takeover request").WithCause(err)
	case errors.Is(err, domain.ErrRequesterMismatch):
		return apperrors.BadRequest("response does not match the pending request").WithCause(err)
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFound("user").WithCause(err)
	case errors.Is(err, domain.ErrUserExists):
		return apperrors.Conflict("username already taken").WithCause(err)
	case errors.Is(err, domain.ErrUserDisabled):
		return apperrors.Forbidden("account is disabled").WithCause(err)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.Unauthorized("invalid username or password").WithCause(err)
	case errors.Is(err, domain.ErrTelemetryNotFound):
		return apperrors.NotFound("telemetry").WithCause(err)
	case errors.Is(err, domain.ErrStateNotFound), errors.Is(err, domain.ErrCorruptState):
		return apperrors.Internal("stream state unavailable").WithCause(err)
	default:
		return apperrors.Internal("internal error").WithCause(err)
	}
}
