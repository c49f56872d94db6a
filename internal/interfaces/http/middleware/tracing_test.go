package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	prevTP := otel.GetTracerProvider()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prevTP)
	})

	return sr
}

func tracedRouter(status int) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing(TracingConfig{Enabled: true, ServiceName: "test-service"})...)
	router.Use(Tenant())
	router.GET("/invoices/:id", func(c *gin.Context) {
		c.Status(status)
	})
	return router
}

func serverSpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == "GET /invoices/:id" {
			return span
		}
	}
	require.FailNow(t, "server span not found")
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_Disabled(t *testing.T) {
	assert.Empty(t, Tracing(TracingConfig{Enabled: false}))
}

func TestTracing_EnrichesServerSpan(t *testing.T) {
	sr := setupTestTracer(t)
	tenantID := uuid.New()
	actorID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/invoices/"+uuid.NewString(), nil)
	req.Header.Set(HeaderRequestID, "req-42")
	req.Header.Set(HeaderTenantID, tenantID.String())
	req.Header.Set(HeaderUserID, actorID.String())
	w := httptest.NewRecorder()
	tracedRouter(http.StatusOK).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	span := serverSpan(t, sr)

	v, ok := spanAttr(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-42", v.AsString())
	v, ok = spanAttr(span, "tenant_id")
	require.True(t, ok)
	assert.Equal(t, tenantID.String(), v.AsString())
	v, ok = spanAttr(span, "actor_id")
	require.True(t, ok)
	assert.Equal(t, actorID.String(), v.AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestTracing_StatusCodes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantError bool
	}{
		{"client error stays unset", http.StatusUnprocessableEntity, false},
		{"not found stays unset", http.StatusNotFound, false},
		{"server error is marked", http.StatusInternalServerError, true},
		{"unavailable is marked", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)

			req := httptest.NewRequest(http.MethodGet, "/invoices/"+uuid.NewString(), nil)
			req.Header.Set(HeaderTenantID, uuid.NewString())
			w := httptest.NewRecorder()
			tracedRouter(tt.status).ServeHTTP(w, req)

			span := serverSpan(t, sr)
			assert.Equal(t, tt.wantError, span.Status().Code == codes.Error)
		})
	}
}

func TestTracing_WithoutTenant(t *testing.T) {
	sr := setupTestTracer(t)

	w := httptest.NewRecorder()
	tracedRouter(http.StatusOK).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices/x", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	span := serverSpan(t, sr)
	_, ok := spanAttr(span, "tenant_id")
	assert.False(t, ok)
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "clinic-backend", cfg.ServiceName)
}
