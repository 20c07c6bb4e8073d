package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/rakapradana/toko-api/pkg/ratelimit"
)

type stubLimiter struct {
	result ratelimit.Result
	err    error
}

func (s *stubLimiter) Check(ctx context.Context, purpose, clientKey string) (ratelimit.Result, error) {
	return s.result, s.err
}

func newRateLimitedRouter(limiter ratelimit.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", RateLimit(limiter, RateLimitLogin, nil, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRateLimitAllowsUnderBudget(t *testing.T) {
	router := newRateLimitedRouter(&stubLimiter{result: ratelimit.Result{Allowed: true}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitRejectsOverBudget(t *testing.T) {
	router := newRateLimitedRouter(&stubLimiter{result: ratelimit.Result{Allowed: false, RetryAfter: 42 * time.Second}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")
}

func TestRateLimitRetryAfterNeverZero(t *testing.T) {
	router := newRateLimitedRouter(&stubLimiter{result: ratelimit.Result{Allowed: false, RetryAfter: 100 * time.Millisecond}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpenOnBackendError(t *testing.T) {
	router := newRateLimitedRouter(&stubLimiter{err: errors.New("backend down")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitEndToEndBudget(t *testing.T) {
	limiter := ratelimit.NewMemory(3, time.Minute)
	router := newRateLimitedRouter(limiter)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
