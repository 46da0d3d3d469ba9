package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opsdash/purchasing/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// StatsFunc reports the counters of a running component
type StatsFunc func() any

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    map[string]Pinger
	stats     map[string]StatsFunc
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]Pinger),
		stats:     make(map[string]StatsFunc),
	}
}

// AddCheck registers a dependency under name. A nil pinger is ignored.
func (h *SystemHandler) AddCheck(name string, p Pinger) *SystemHandler {
	if p != nil {
		h.checks[name] = p
	}
	return h
}

// AddStats publishes fn's snapshot under name in GET /system/info
func (h *SystemHandler) AddStats(name string, fn StatsFunc) *SystemHandler {
	if fn != nil {
		h.stats[name] = fn
	}
	return h
}

// SystemInfoResponse is the body of GET /system/info
type SystemInfoResponse struct {
	Name       string         `json:"name"`
	Version    string         `json:"version"`
	GoVersion  string         `json:"go_version"`
	Uptime     string         `json:"uptime"`
	Components map[string]any `json:"components,omitempty"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks"`
}

// Health probes every registered dependency and answers 503 if any fails
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
		Checks: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			logger.FromGin(c).Warn("health check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = "error"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	c.JSON(status, resp)
}

// GetSystemInfo returns the service name, version, uptime and component counters
// GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	resp := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if len(h.stats) > 0 {
		resp.Components = make(map[string]any, len(h.stats))
		for name, fn := range h.stats {
			resp.Components[name] = fn()
		}
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts /system/info under rg
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/info", h.GetSystemInfo)
}
