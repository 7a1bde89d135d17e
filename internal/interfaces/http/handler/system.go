package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency; a nil error means healthy
type HealthCheck func(ctx context.Context) error

// Diagnostic reports runtime state of one dependency, e.g. connection pool statistics
type Diagnostic func() (any, error)

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name        string
	version     string
	startTime   time.Time
	checks      map[string]HealthCheck
	diagnostics map[string]Diagnostic
}

// SystemOption configures a SystemHandler
type SystemOption func(*SystemHandler)

// WithDiagnostic adds a named diagnostic to the system info response
func WithDiagnostic(name string, d Diagnostic) SystemOption {
	return func(h *SystemHandler) {
		h.diagnostics[name] = d
	}
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, checks map[string]HealthCheck, opts ...SystemOption) *SystemHandler {
	h := &SystemHandler{
		name:        name,
		version:     version,
		startTime:   time.Now(),
		checks:      checks,
		diagnostics: make(map[string]Diagnostic),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse reports the outcome of every dependency probe
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`

	Diagnostics map[string]any `json:"diagnostics,omitempty"`
}

// Health answers 200 when every check passes and 503 otherwise
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.L(ctx).Warn("Health check failed", zap.String("check", name), zap.Error(err))
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}

// GetSystemInfo returns the service name, version, uptime and diagnostics.
// A failing diagnostic is reported by its error message.
// GET /api/v1/system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	resp := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if len(h.diagnostics) > 0 {
		resp.Diagnostics = make(map[string]any, len(h.diagnostics))
		for name, diagnose := range h.diagnostics {
			v, err := diagnose()
			if err != nil {
				logger.L(c.Request.Context()).Warn("Diagnostic failed", zap.String("diagnostic", name), zap.Error(err))
				resp.Diagnostics[name] = gin.H{"error": err.Error()}
				continue
			}
			resp.Diagnostics[name] = v
		}
	}
	h.Success(c, resp)
}
