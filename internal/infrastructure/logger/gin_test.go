package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(t *testing.T, register func(r *gin.Engine)) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.DebugLevel)
	zl := zap.New(core)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Request-ID"); id != "" {
			c.Set(GinRequestIDKey, id)
		}
		if id := c.GetHeader("X-User-ID"); id != "" {
			c.Set(GinUserIDKey, id)
		}
		c.Next()
	})
	router.Use(Recovery(zl), GinMiddleware(zl))
	register(router)
	return router, recorded
}

func requestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddleware(t *testing.T) {
	router, recorded := newLoggedRouter(t, func(r *gin.Engine) {
		r.GET("/api/v1/orders/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/o1?refresh=true", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	entry := requestLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/orders/o1", fields["path"])
	assert.Equal(t, "refresh=true", fields["query"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusCreated, zapcore.InfoLevel},
		{http.StatusPaymentRequired, zapcore.WarnLevel},
		{http.StatusBadGateway, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			router, recorded := newLoggedRouter(t, func(r *gin.Engine) {
				r.POST("/x", func(c *gin.Context) { c.Status(tt.status) })
			})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
			assert.Equal(t, tt.level, requestLog(t, recorded).Level)
		})
	}
}

func TestGinMiddleware_RequestContextLogger(t *testing.T) {
	router, recorded := newLoggedRouter(t, func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) {
			assert.Equal(t, "user-7", GetUserID(c.Request.Context()))
			L(c.Request.Context()).Info("inside handler")
			GetGinLogger(c).Debug("via gin")
			c.Status(http.StatusNoContent)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-User-ID", "user-7")
	router.ServeHTTP(httptest.NewRecorder(), req)

	for _, msg := range []string{"inside handler", "via gin"} {
		entries := recorded.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		assert.Equal(t, "user-7", entries[0].ContextMap()["user_id"])
	}
}

func TestRecovery(t *testing.T) {
	router, recorded := newLoggedRouter(t, func(r *gin.Engine) {
		r.GET("/panic", func(c *gin.Context) { panic("boom") })
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_INTERNAL","message":"internal server error"}}`, w.Body.String())
	assert.Len(t, recorded.FilterMessage("Panic recovered").All(), 1)
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}
