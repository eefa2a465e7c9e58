package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/infrastructure/logger"
	"github.com/shipflow/backend/internal/interfaces/http/dto"
)

// UserIDHeader identifies the calling merchant
const UserIDHeader = "X-User-ID"

// userUUIDKey holds the parsed caller id in gin.Context
const userUUIDKey = "user_uuid"

// UserConfig holds configuration for the caller identification middleware
type UserConfig struct {
	// SkipPaths are paths served without a caller (health, provider webhooks)
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultUserConfig returns the default caller identification configuration
func DefaultUserConfig() UserConfig {
	return UserConfig{
		SkipPaths: []string{"/health", "/api/v1/health", "/api/v1/webhooks", "/swagger"},
	}
}

// User requires a valid X-User-ID header on every non-skipped request
func User() gin.HandlerFunc {
	return UserWithConfig(DefaultUserConfig())
}

// UserWithConfig returns the caller identification middleware with custom configuration
func UserWithConfig(cfg UserConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		raw := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if raw == "" {
			abortUnauthorized(c, "X-User-ID header is required")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			if cfg.Logger != nil {
				cfg.Logger.Debug("Rejected caller id", zap.String("user_id", raw))
			}
			abortUnauthorized(c, "X-User-ID must be a UUID")
			return
		}

		c.Set(userUUIDKey, userID)
		c.Set(logger.GinUserIDKey, userID.String())
		c.Next()
	}
}

// GetUserID retrieves the caller id set by User
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userUUIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, GetRequestID(c)))
}
