package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string, b cache.Bucket) (cache.Decision, error) {
	args := m.Called(ctx, key, b)
	return args.Get(0).(cache.Decision), args.Error(1)
}

func limitedRouter(limiter Limiter, bucket cache.Bucket) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bookings", RateLimit(limiter, "rl", bucket), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestRateLimit_Allowed(t *testing.T) {
	limiter := &MockLimiter{}
	bucket := cache.Bucket{Capacity: 5, RefillTokens: 1, RefillInterval: time.Second}
	router := limitedRouter(limiter, bucket)

	limiter.On("Allow", mock.Anything, "rl:/bookings:192.0.2.1", bucket).
		Return(cache.Decision{Allowed: true, Remaining: 4}, nil).Once()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/bookings", nil)
	r.RemoteAddr = "192.0.2.1:5000"
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	limiter.AssertExpectations(t)
}

func TestRateLimit_Rejected(t *testing.T) {
	limiter := &MockLimiter{}
	bucket := cache.Bucket{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second}
	router := limitedRouter(limiter, bucket)

	limiter.On("Allow", mock.Anything, mock.Anything, bucket).
		Return(cache.Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/bookings", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"detail":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimit_LimiterDownFailsOpen(t *testing.T) {
	limiter := &MockLimiter{}
	bucket := cache.Bucket{Capacity: 1}
	router := limitedRouter(limiter, bucket)

	limiter.On("Allow", mock.Anything, mock.Anything, bucket).
		Return(cache.Decision{}, errors.New("redis down")).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/bookings", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
}
