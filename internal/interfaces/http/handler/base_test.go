package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/integration"
	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/interfaces/http/dto"
	"github.com/shipflow/backend/tests/testutil"
)

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "domain error keeps message",
			err:         shared.ErrMissingCustomsInfo.Withf("line L1 has no HS tariff"),
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    dto.ErrCodeMissingCustomsInfo,
			wantMessage: "line L1 has no HS tariff",
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("pay order: %w", shared.ErrNoRatesAvailable),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeNoRatesAvailable,
		},
		{
			name:       "storefront unavailable",
			err:        fmt.Errorf("notify: %w", integration.ErrStorefrontUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   dto.ErrCodeStorefrontUnavailable,
		},
		{
			name:       "storefront rejected",
			err:        fmt.Errorf("notify: %w", integration.ErrStorefrontRequestFailed),
			wantStatus: http.StatusBadGateway,
			wantCode:   dto.ErrCodeStorefrontFailed,
		},
		{
			name:       "storefront bad response",
			err:        integration.ErrStorefrontBadResponse,
			wantStatus: http.StatusBadGateway,
			wantCode:   dto.ErrCodeStorefrontFailed,
		},
		{
			name:       "unknown store type",
			err:        fmt.Errorf("%w: etsy", integration.ErrUnknownStoreType),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeInvalidInput,
		},
		{
			name:        "unexpected error is hidden",
			err:         errors.New("pq: relation \"orders\" does not exist"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    dto.ErrCodeInternal,
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			r := newTestRouter(func(r *gin.Engine) {
				r.GET("/boom", func(c *gin.Context) { h.HandleError(c, tt.err) })
			})

			w := testutil.Perform(t, r, http.MethodGet, "/boom", uuid.New(), nil, nil)

			require.Equal(t, tt.wantStatus, w.Code)
			env := testutil.DecodeEnvelope(t, w, nil)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, w.Header().Get("X-Request-ID"), env.Error.RequestID)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, env.Error.Message)
			}
		})
	}
}

func TestBaseHandler_CallerWithoutMiddleware(t *testing.T) {
	h := &BaseHandler{}
	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		if _, ok := h.caller(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := testutil.Perform(t, r, http.MethodGet, "/me", uuid.New(), nil, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
