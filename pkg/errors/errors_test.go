package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   ErrorCode
		status int
	}{
		{BadRequest("bad"), ErrCodeBadRequest, http.StatusBadRequest},
		{Unauthorized("who"), ErrCodeUnauthorized, http.StatusUnauthorized},
		{Forbidden("no"), ErrCodeForbidden, http.StatusForbidden},
		{NotFound("user"), ErrCodeNotFound, http.StatusNotFound},
		{Conflict("busy"), ErrCodeConflict, http.StatusConflict},
		{RateLimited("slow down"), ErrCodeRateLimited, http.StatusTooManyRequests},
		{Unavailable("later"), ErrCodeUnavailable, http.StatusServiceUnavailable},
		{Internal("oops"), ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.Equal(t, tt.status, tt.err.HTTPStatus)
	}
}

func TestNotFound_Message(t *testing.T) {
	assert.Equal(t, "user not found", NotFound("user").Message)
}

func TestWithCause_PreservesOriginal(t *testing.T) {
	base := Conflict("seat taken")
	cause := errors.New("db says no")

	wrapped := base.WithCause(cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "db says no")

	// The shared sentinel must stay untouched.
	assert.Nil(t, base.Cause)
}

func TestAsAppError(t *testing.T) {
	app := Forbidden("nope")
	wrapped := fmt.Errorf("handler: %w", app)

	got := AsAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrCodeForbidden, got.Code)

	assert.Nil(t, AsAppError(errors.New("plain")))
	assert.Nil(t, AsAppError(nil))
}
