package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"value-ledger/internal/adapter/http/middleware"
	redisStore "value-ledger/internal/adapter/storage/redis"
	"value-ledger/internal/core/ports"
	"value-ledger/internal/core/ports/mocks"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupRateLimitRouter(store ports.RateLimitStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	identify := func(c *gin.Context) {
		if id := c.GetHeader("X-Test-Account"); id != "" {
			c.Set(middleware.CtxAccountID, id)
		}
	}

	r.GET("/test", identify, middleware.RateLimiter(store, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func newRedisRateLimitStore(t *testing.T) *redisStore.RateLimitStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisStore.NewRateLimitStore(client)
}

func get(router *gin.Engine, account string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if account != "" {
		req.Header.Set("X-Test-Account", account)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := setupRateLimitRouter(newRedisRateLimitStore(t))

	for i := 0; i < 3; i++ {
		w := get(router, "")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	router := setupRateLimitRouter(newRedisRateLimitStore(t))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "").Code)
	}

	w := get(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_001")
}

func TestRateLimiter_KeysByAccount(t *testing.T) {
	router := setupRateLimitRouter(newRedisRateLimitStore(t))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "alice").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "alice").Code)

	// independent counters for another account and for anonymous callers
	assert.Equal(t, http.StatusOK, get(router, "bob").Code)
	assert.Equal(t, http.StatusOK, get(router, "").Code)
}

func TestRateLimiter_DegradedMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockRateLimitStore(ctrl)
	store.EXPECT().Increment(gomock.Any(), gomock.Any(), time.Minute).Return(int64(0), errors.New("redis down")).Times(5)

	router := setupRateLimitRouter(store)
	for i := 0; i < 5; i++ {
		w := get(router, "alice")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiter_KeyFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockRateLimitStore(ctrl)
	store.EXPECT().Increment(gomock.Any(), "acct:alice:test", time.Minute).Return(int64(1), nil)
	store.EXPECT().Increment(gomock.Any(), "ip:192.0.2.1:test", time.Minute).Return(int64(1), nil)

	router := setupRateLimitRouter(store)
	w := get(router, "alice")
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
	get(router, "")
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	for _, group := range []string{"sessions", "transfers", "vouches", "bridge", "queries", "events", "authority"} {
		rule, ok := rules[group]
		if assert.True(t, ok, group) {
			assert.Positive(t, rule.Limit)
			assert.Equal(t, time.Minute, rule.Window)
		}
	}
	assert.Equal(t, int64(10), rules["sessions"].Limit)
	assert.Equal(t, int64(120), rules["transfers"].Limit)
}
