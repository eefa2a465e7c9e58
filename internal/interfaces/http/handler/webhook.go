package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/infrastructure/logger"
	"github.com/shipflow/backend/internal/interfaces/http/dto"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
)

const (
	// SignatureHeader carries the provider's HMAC-SHA256 of the raw body,
	// hex encoded after signaturePrefix
	SignatureHeader = "X-Hmac-Signature"
	signaturePrefix = "hmac-sha256-hex="

	// tracker callbacks are small
	maxWebhookPayloadSize = 65536
)

// TrackingUpdater records tracking numbers reported by the provider
type TrackingUpdater interface {
	UpdateTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*shipping.Order, error)
}

// WebhookHandler handles provider callbacks
type WebhookHandler struct {
	BaseHandler
	tracking TrackingUpdater
	store    shared.IdempotencyStore
	secret   []byte
	ttl      time.Duration
}

// NewWebhookHandler creates a new WebhookHandler. Deliveries must be signed
// with secret; with an empty secret every delivery is refused. Delivered
// event ids are remembered for ttl.
func NewWebhookHandler(tracking TrackingUpdater, store shared.IdempotencyStore, secret string, ttl time.Duration) *WebhookHandler {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &WebhookHandler{
		tracking: tracking,
		store:    store,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

func signPayload(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// verifySignature checks header against the HMAC of payload in constant time
func (h *WebhookHandler) verifySignature(payload []byte, header string) bool {
	if len(h.secret) == 0 || header == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(header), signaturePrefix))
	if err != nil {
		return false
	}
	return hmac.Equal(got, signPayload(h.secret, payload))
}

// TrackingEvent is the provider's tracker callback. Result.Reference is the
// order id the shipment was created with.
type TrackingEvent struct {
	ID          string `json:"id" binding:"required"`
	Description string `json:"description"`
	Result      struct {
		Reference    string `json:"reference" binding:"required,uuid"`
		TrackingCode string `json:"tracking_code" binding:"required"`
		Status       string `json:"status"`
	} `json:"result"`
}

// WebhookAck acknowledges a callback
type WebhookAck struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

const (
	ackProcessed = "processed"
	ackDuplicate = "duplicate"
	ackIgnored   = "ignored"
)

func trackingEventKey(eventID string) string {
	return "webhook:tracking:" + eventID
}

// Tracking records the tracking number of a provider tracker event after
// checking its signature. A re-delivered event is acknowledged without
// touching the order.
//
// @Summary      Receive a provider tracking event
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Hmac-Signature header string true "hmac-sha256-hex=<digest> of the raw body"
// @Param        request body TrackingEvent true "Request body"
// @Success      200 {object} dto.Response{data=WebhookAck}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /webhooks/tracking [post]
func (h *WebhookHandler) Tracking(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Payload too large")
		return
	}
	if !h.verifySignature(payload, c.GetHeader(SignatureHeader)) {
		logger.GetGinLogger(c).Warn("Rejected unsigned tracking webhook")
		h.Unauthorized(c, "Webhook signature verification failed")
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(payload))

	var event TrackingEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	log := logger.GetGinLogger(c).With(
		zap.String("event_id", event.ID),
		zap.String("order_id", event.Result.Reference),
	)
	key := trackingEventKey(event.ID)

	seen, err := h.store.IsProcessed(ctx, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if seen {
		log.Debug("Skipping re-delivered tracking event")
		h.Success(c, WebhookAck{EventID: event.ID, Status: ackDuplicate})
		return
	}

	orderID := uuid.MustParse(event.Result.Reference)
	status := ackProcessed
	if _, err := h.tracking.UpdateTracking(ctx, orderID, event.Result.TrackingCode); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.HandleError(c, err)
			return
		}
		log.Warn("Tracking event for unknown order")
		status = ackIgnored
	}

	if _, err := h.store.MarkProcessed(ctx, key, h.ttl); err != nil {
		log.Warn("Failed to remember tracking event", zap.Error(err))
	}
	h.Success(c, WebhookAck{EventID: event.ID, Status: status})
}
