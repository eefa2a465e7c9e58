package handler

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/domain/shared"
	"github.com/shipflow/backend/internal/domain/shipping"
	"github.com/shipflow/backend/internal/interfaces/http/dto"
	"github.com/shipflow/backend/tests/testutil"
)

const webhookSecret = "whsec_test"

func setupWebhookHandler(store *fakeStore) (*mockShipments, *gin.Engine) {
	tracking := new(mockShipments)
	h := NewWebhookHandler(tracking, store, webhookSecret, 0)
	r := newTestRouter(func(r *gin.Engine) {
		r.POST("/api/v1/webhooks/tracking", h.Tracking)
	})
	return tracking, r
}

func trackerEvent(id string, orderID uuid.UUID, code string) map[string]any {
	return map[string]any{
		"id":          id,
		"description": "tracker.updated",
		"result": map[string]string{
			"reference":     orderID.String(),
			"tracking_code": code,
			"status":        "in_transit",
		},
	}
}

// deliver posts event signed the way the provider signs callbacks
func deliver(t *testing.T, r *gin.Engine, event any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	signature := signaturePrefix + hex.EncodeToString(signPayload([]byte(webhookSecret), payload))
	return testutil.Perform(t, r, http.MethodPost, "/api/v1/webhooks/tracking", uuid.Nil, payload,
		map[string]string{SignatureHeader: signature})
}

func TestWebhookHandler_Tracking(t *testing.T) {
	store := newFakeStore()
	tracking, r := setupWebhookHandler(store)
	orderID := uuid.New()
	tracking.On("UpdateTracking", mock.Anything, orderID, "9400NEW").Return(&shipping.Order{}, nil).Once()

	// webhooks are called by the provider, not a merchant
	w := deliver(t, r, trackerEvent("evt_1", orderID, "9400NEW"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ack WebhookAck
	testutil.DecodeEnvelope(t, w, &ack)
	assert.Equal(t, WebhookAck{EventID: "evt_1", Status: "processed"}, ack)
	assert.True(t, store.seen["webhook:tracking:evt_1"])

	w = deliver(t, r, trackerEvent("evt_1", orderID, "9400NEW"))

	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeEnvelope(t, w, &ack)
	assert.Equal(t, "duplicate", ack.Status)
	tracking.AssertNumberOfCalls(t, "UpdateTracking", 1)
}

func TestWebhookHandler_Tracking_UnknownOrder(t *testing.T) {
	store := newFakeStore()
	tracking, r := setupWebhookHandler(store)
	orderID := uuid.New()
	tracking.On("UpdateTracking", mock.Anything, orderID, "9400X").Return(nil, shared.ErrNotFound).Once()

	w := deliver(t, r, trackerEvent("evt_2", orderID, "9400X"))

	require.Equal(t, http.StatusOK, w.Code)
	var ack WebhookAck
	testutil.DecodeEnvelope(t, w, &ack)
	assert.Equal(t, "ignored", ack.Status)
	assert.True(t, store.seen["webhook:tracking:evt_2"])
}

func TestWebhookHandler_Tracking_FailureIsRetried(t *testing.T) {
	store := newFakeStore()
	tracking, r := setupWebhookHandler(store)
	orderID := uuid.New()
	tracking.On("UpdateTracking", mock.Anything, orderID, "9400Y").
		Return(nil, shared.ErrInvalidState.Withf("order has no purchased label")).Once()

	w := deliver(t, r, trackerEvent("evt_3", orderID, "9400Y"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, store.seen["webhook:tracking:evt_3"], "failed events must stay deliverable")
}

func TestWebhookHandler_Tracking_StoreError(t *testing.T) {
	store := newFakeStore()
	store.failGet = errors.New("redis: connection refused")
	tracking, r := setupWebhookHandler(store)

	w := deliver(t, r, trackerEvent("evt_4", uuid.New(), "9400Z"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeInternal)
	tracking.AssertNotCalled(t, "UpdateTracking", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_Tracking_Validation(t *testing.T) {
	tracking, r := setupWebhookHandler(newFakeStore())

	w := deliver(t, r, map[string]any{
		"id":     "evt_5",
		"result": map[string]string{"reference": "not-an-order", "tracking_code": "X"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
	tracking.AssertNotCalled(t, "UpdateTracking", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_Tracking_Signature(t *testing.T) {
	store := newFakeStore()
	tracking, r := setupWebhookHandler(store)
	orderID := uuid.New()
	payload, err := json.Marshal(trackerEvent("evt_6", orderID, "9400S"))
	require.NoError(t, err)
	forged := signaturePrefix + hex.EncodeToString(signPayload([]byte("whsec_other"), payload))

	testutil.RunHTTPCases(t, r, []testutil.HTTPCase{
		{
			Name:      "missing signature",
			Method:    http.MethodPost,
			Path:      "/api/v1/webhooks/tracking",
			Body:      payload,
			Status:    http.StatusUnauthorized,
			ErrorCode: dto.ErrCodeUnauthorized,
		},
		{
			Name:      "signed with another secret",
			Method:    http.MethodPost,
			Path:      "/api/v1/webhooks/tracking",
			Body:      payload,
			Headers:   map[string]string{SignatureHeader: forged},
			Status:    http.StatusUnauthorized,
			ErrorCode: dto.ErrCodeUnauthorized,
		},
		{
			Name:      "not hex",
			Method:    http.MethodPost,
			Path:      "/api/v1/webhooks/tracking",
			Body:      payload,
			Headers:   map[string]string{SignatureHeader: signaturePrefix + "zz"},
			Status:    http.StatusUnauthorized,
			ErrorCode: dto.ErrCodeUnauthorized,
		},
		{
			Name:      "body altered after signing",
			Method:    http.MethodPost,
			Path:      "/api/v1/webhooks/tracking",
			Body:      append(append([]byte{}, payload...), ' '),
			Headers:   map[string]string{SignatureHeader: signaturePrefix + hex.EncodeToString(signPayload([]byte(webhookSecret), payload))},
			Status:    http.StatusUnauthorized,
			ErrorCode: dto.ErrCodeUnauthorized,
		},
	})

	tracking.AssertNotCalled(t, "UpdateTracking", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, store.seen)
}

func TestWebhookHandler_Tracking_NoSecretRefusesAll(t *testing.T) {
	tracking := new(mockShipments)
	h := NewWebhookHandler(tracking, newFakeStore(), "", 0)
	r := newTestRouter(func(r *gin.Engine) {
		r.POST("/api/v1/webhooks/tracking", h.Tracking)
	})
	payload, err := json.Marshal(trackerEvent("evt_7", uuid.New(), "9400T"))
	require.NoError(t, err)
	unkeyed := signaturePrefix + hex.EncodeToString(signPayload(nil, payload))

	w := testutil.Perform(t, r, http.MethodPost, "/api/v1/webhooks/tracking", uuid.Nil, payload,
		map[string]string{SignatureHeader: unkeyed})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	tracking.AssertNotCalled(t, "UpdateTracking", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_Tracking_PayloadTooLarge(t *testing.T) {
	tracking, r := setupWebhookHandler(newFakeStore())
	big := make([]byte, maxWebhookPayloadSize+1)

	w := testutil.Perform(t, r, http.MethodPost, "/api/v1/webhooks/tracking", uuid.Nil, big, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeRequestTooLarge)
	tracking.AssertNotCalled(t, "UpdateTracking", mock.Anything, mock.Anything, mock.Anything)
}
