package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/admin/audit", "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/admin/audit", "root", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_LimitValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"limit=0", "limit=-1", "limit=abc"} {
		w := env.request(t, http.MethodGet, "/api/v1/admin/audit?"+q, "root", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	// Oversized limits are clamped, not rejected.
	w := env.request(t, http.MethodGet, "/api/v1/admin/audit?limit=100000", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
