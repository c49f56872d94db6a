package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinic/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }

	serve := func(h *HealthHandler) (*httptest.ResponseRecorder, HealthResponse) {
		r := gin.New()
		r.GET("/health", h.Health)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		var envelope struct {
			Data  HealthResponse `json:"data"`
			Error *dto.ErrorInfo `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		return w, envelope.Data
	}

	t.Run("healthy", func(t *testing.T) {
		w, resp := serve(NewHealthHandler(ok).WithCheck("redis", ok))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)
	})

	t.Run("database down", func(t *testing.T) {
		w, resp := serve(NewHealthHandler(func(context.Context) error { return errors.New("connection refused") }))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["database"])
	})

	t.Run("check sees a deadline", func(t *testing.T) {
		var hadDeadline bool
		h := NewHealthHandler(func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		})

		w, _ := serve(h)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, hadDeadline)
	})
}
