package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/clinic/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// DefaultHealthTimeout bounds each dependency probe
const DefaultHealthTimeout = 2 * time.Second

// HealthHandler reports liveness together with the state of the database
// and any optional dependencies that were registered.
type HealthHandler struct {
	BaseHandler
	checks  map[string]HealthCheck
	timeout time.Duration
	started time.Time
}

// NewHealthHandler creates a HealthHandler. The database check is mandatory.
func NewHealthHandler(database HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:  map[string]HealthCheck{"database": database},
		timeout: DefaultHealthTimeout,
		started: time.Now(),
	}
}

// WithCheck registers an additional dependency probe
func (h *HealthHandler) WithCheck(name string, check HealthCheck) *HealthHandler {
	h.checks[name] = check
	return h
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /health. Any failing check turns the answer into a 503.
func (h *HealthHandler) Health(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
		Checks: make(map[string]string, len(names)),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    resp,
			Error:   &dto.ErrorInfo{Code: dto.ErrCodeServiceUnavailable, Message: "A dependency is unavailable"},
		})
		return
	}
	h.Success(c, resp)
}
