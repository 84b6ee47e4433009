package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 3)
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.2"))
	assert.False(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_IsolatesByClientIP(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.3"))
	assert.False(t, rl.Allow("10.0.0.3"))
	assert.True(t, rl.Allow("10.0.0.4"))
}

func TestRateLimitMiddleware_BlocksExhaustedClient(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 1)
	defer rl.Stop()

	e := echo.New()
	handler := RateLimitMiddleware(rl)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecast", nil)
	req.RemoteAddr = "10.0.0.5:1234"

	first := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, first)))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, second)))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}
