package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestIsAllowedCountsWithinWindow(t *testing.T) {
	rdb, mr := testhelpers.SetupRedis(t)
	limiter := NewRecipeCreationRateLimiter(rdb, 2)
	ctx := context.Background()

	allowed, remaining, reset, err := limiter.IsAllowed(ctx, "7")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
	assert.True(t, reset.After(time.Now()))

	allowed, remaining, _, err = limiter.IsAllowed(ctx, "7")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, remaining)

	allowed, remaining, _, err = limiter.IsAllowed(ctx, "7")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	// Other keys keep their own count
	allowed, _, _, err = limiter.IsAllowed(ctx, "8")
	require.NoError(t, err)
	assert.True(t, allowed)

	// Counters expire with the window
	keys := mr.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))
	mr.FastForward(time.Hour)
	allowed, remaining, _, err = limiter.IsAllowed(ctx, "7")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
}

func newLimitedRouter(mw gin.HandlerFunc, userID uint) *gin.Engine {
	router := gin.New()
	router.PATCH("/recipes/:id", func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}, mw, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitMiddlewareRejectsOverLimit(t *testing.T) {
	rdb, _ := testhelpers.SetupRedis(t)
	router := newLimitedRouter(NewRecipeCreationRateLimiter(rdb, 1).RateLimitMiddleware(), 1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/recipes/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, reset, time.Now().Unix())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/recipes/2", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestPerRecipeRateLimitIsPerRecipe(t *testing.T) {
	rdb, _ := testhelpers.SetupRedis(t)
	router := newLimitedRouter(NewRecipeModificationRateLimiter(rdb, 1).PerRecipeRateLimitMiddleware(), 1)

	serveCode := func(path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serveCode("/recipes/1"))
	assert.Equal(t, http.StatusTooManyRequests, serveCode("/recipes/1"))
	assert.Equal(t, http.StatusOK, serveCode("/recipes/2"))
}

func TestRateLimiterFailsOpenOnRedisError(t *testing.T) {
	rdb, mr := testhelpers.SetupRedis(t)
	router := newLimitedRouter(NewRecipeCreationRateLimiter(rdb, 1).RateLimitMiddleware(), 1)
	mr.SetError("LOADING server is loading")

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/recipes/1", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Error"))
	}
}
