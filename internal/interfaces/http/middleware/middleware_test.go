package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/infrastructure/logger"
	"github.com/shipflow/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) {
		assert.Equal(t, c.GetString(logger.GinRequestIDKey), GetRequestID(c))
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generates request ID", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/x", nil)
		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 32)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("keeps provided request ID", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/x", map[string]string{RequestIDHeader: "req-42"})
		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-42", w.Body.String())
	})

	assert.NotEqual(t, generateRequestID(), generateRequestID())
}

func TestUser(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), User())
	router.GET("/api/v1/balance", func(c *gin.Context) {
		id, ok := GetUserID(c)
		require.True(t, ok)
		assert.Equal(t, id.String(), c.GetString(logger.GinUserIDKey))
		c.String(http.StatusOK, id.String())
	})
	router.POST("/api/v1/webhooks/tracking", func(c *gin.Context) {
		_, ok := GetUserID(c)
		assert.False(t, ok)
		c.Status(http.StatusAccepted)
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	userID := uuid.New()

	t.Run("valid caller", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/api/v1/balance", map[string]string{UserIDHeader: userID.String()})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Body.String())
	})

	t.Run("missing caller", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/api/v1/balance", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeUnauthorized)
	})

	t.Run("malformed caller", func(t *testing.T) {
		for _, bad := range []string{"user-1", uuid.Nil.String()} {
			w := serve(router, http.MethodGet, "/api/v1/balance", map[string]string{UserIDHeader: bad})
			assert.Equal(t, http.StatusUnauthorized, w.Code, bad)
		}
	})

	t.Run("skipped paths", func(t *testing.T) {
		assert.Equal(t, http.StatusAccepted, serve(router, http.MethodPost, "/api/v1/webhooks/tracking", nil).Code)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", nil).Code)
	})
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/x", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestRateLimiter(t *testing.T) {
	t.Run("limits per key", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)
		defer limiter.Stop()

		assert.True(t, limiter.Allow("a"))
		assert.Equal(t, 1, limiter.Remaining("a"))
		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("b"))
		assert.Equal(t, 2, limiter.Remaining("c"))
	})

	t.Run("refills after window", func(t *testing.T) {
		limiter := NewRateLimiter(1, 50*time.Millisecond)
		defer limiter.Stop()

		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		time.Sleep(60 * time.Millisecond)
		assert.True(t, limiter.Allow("a"))
	})

	t.Run("no burst across a window boundary", func(t *testing.T) {
		limiter := NewRateLimiter(4, 2*time.Second)
		defer limiter.Stop()

		for i := 0; i < 4; i++ {
			require.True(t, limiter.Allow("a"))
		}
		// 600ms refills one token at 2s/4
		time.Sleep(600 * time.Millisecond)
		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
	})

	t.Run("concurrent access", func(t *testing.T) {
		limiter := NewRateLimiter(50, time.Minute)
		defer limiter.Stop()

		var mu sync.Mutex
		allowed := 0
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, allowed)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		limiter.Stop()
		assert.NotPanics(t, limiter.Stop)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Stop()

	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := uuid.NewString()
	w := serve(router, http.MethodGet, "/x", map[string]string{UserIDHeader: first})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(router, http.MethodGet, "/x", map[string]string{UserIDHeader: first})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), dto.ErrCodeRateLimited)

	// another caller behind the same IP has its own budget
	w = serve(router, http.MethodGet, "/x", map[string]string{UserIDHeader: uuid.NewString()})
	assert.Equal(t, http.StatusOK, w.Code)
}
