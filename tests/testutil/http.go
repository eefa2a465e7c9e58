package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipflow/backend/internal/interfaces/http/dto"
	"github.com/shipflow/backend/internal/interfaces/http/middleware"
)

// Envelope is the decoded API response wrapper
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

// HTTPCase is one request against an engine and the response it must get.
// String bodies are sent raw so malformed JSON can be exercised.
type HTTPCase struct {
	Name      string
	Method    string
	Path      string
	UserID    uuid.UUID
	Body      any
	Headers   map[string]string
	Setup     func(t *testing.T)
	Status    int
	ErrorCode string
	Check     func(t *testing.T, w *httptest.ResponseRecorder)
}

// RunHTTPCases runs each case as a subtest against h
func RunHTTPCases(t *testing.T, h http.Handler, cases []HTTPCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Setup != nil {
				tc.Setup(t)
			}
			w := Perform(t, h, tc.Method, tc.Path, tc.UserID, tc.Body, tc.Headers)
			if tc.Status != 0 {
				assert.Equal(t, tc.Status, w.Code, w.Body.String())
			}
			if tc.ErrorCode != "" {
				AssertErrorResponse(t, w, tc.ErrorCode)
			}
			if tc.Check != nil {
				tc.Check(t, w)
			}
		})
	}
}

// Perform sends one JSON request to h as userID. A nil userID sends no
// caller header.
func Perform(t *testing.T, h http.Handler, method, path string, userID uuid.UUID, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set(middleware.UserIDHeader, userID.String())
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// DecodeEnvelope parses the response wrapper and, when data is non-nil,
// its payload
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// AssertErrorResponse asserts a failure envelope carrying code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, code string) *dto.ErrorInfo {
	t.Helper()
	env := DecodeEnvelope(t, w, nil)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error, "expected an error object")
	assert.Equal(t, code, env.Error.Code)
	return env.Error
}
