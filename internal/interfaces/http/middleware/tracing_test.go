package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(Tracing("shipflow", nil), SpanAttributes())
	var recording bool
	router.GET("/x", func(c *gin.Context) {
		recording = trace.SpanFromContext(c.Request.Context()).IsRecording()
		c.Status(http.StatusNoContent)
	})

	w := serve(router, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, recording)
}

func TestTracing_RecordsRouteAndCaller(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	router := gin.New()
	router.Use(Tracing("shipflow", tp), RequestID(), User(), SpanAttributes())
	router.GET("/api/v1/orders/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	caller := uuid.NewString()
	serve(router, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), map[string]string{
		UserIDHeader:    caller,
		RequestIDHeader: "req-7",
	})
	serve(router, http.MethodGet, "/health", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name, "/api/v1/orders/:id")

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, caller, attrs["user_id"])
	assert.Equal(t, "req-7", attrs["request_id"])
}
