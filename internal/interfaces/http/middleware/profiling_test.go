package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.Contains(t, cfg.SkipPaths, "/health")
}

func TestProfiling_Disabled(t *testing.T) {
	handlerCalled := false
	router := gin.New()
	router.Use(Profiling(ProfilingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) {
		handlerCalled = true
		_, labelled := pprof.Label(c.Request.Context(), "route")
		assert.False(t, labelled)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerCalled)
}

func TestProfiling_LabelsRequest(t *testing.T) {
	tenantID := uuid.New()
	labels := map[string]string{}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, "kept"))
		c.Next()
	})
	router.Use(Profiling(DefaultProfilingConfig()))
	router.POST("/api/v1/service-orders/:id/start", func(c *gin.Context) {
		ctx := c.Request.Context()
		pprof.ForLabels(ctx, func(k, v string) bool {
			labels[k] = v
			return true
		})
		assert.Equal(t, "kept", ctx.Value(ctxKey{}))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/service-orders/"+uuid.NewString()+"/start", nil)
	req.Header.Set(HeaderTenantID, tenantID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "service-orders", labels["controller"])
	assert.Equal(t, "/api/v1/service-orders/:id/start", labels["route"])
	assert.Equal(t, http.MethodPost, labels["method"])
	assert.Equal(t, tenantID.String(), labels["tenant_id"])
}

func TestProfiling_SkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(Profiling(DefaultProfilingConfig()))
	router.GET("/health", func(c *gin.Context) {
		_, labelled := pprof.Label(c.Request.Context(), "route")
		assert.False(t, labelled)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfiling_IgnoresMalformedTenantHeader(t *testing.T) {
	var tenant string
	router := gin.New()
	router.Use(Profiling(DefaultProfilingConfig()))
	router.GET("/api/v1/invoices/:id", func(c *gin.Context) {
		tenant, _ = pprof.Label(c.Request.Context(), "tenant_id")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/1", nil)
	req.Header.Set(HeaderTenantID, "not-a-uuid")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, tenant)
}

func TestControllerFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/invoices", "invoices"},
		{"/api/v1/invoices/:id/payments", "invoices"},
		{"/api/v2/service-orders/:id/start", "service-orders"},
		{"/api/v1/departments/:id/queue", "departments"},
		{"/health", "health"},
		{"/api/v1/:id", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, controllerFromRoute(tt.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("visits"))
	assert.False(t, isVersionSegment("1"))
}
