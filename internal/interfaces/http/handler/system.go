package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ReadinessCheck probes one dependency.
type ReadinessCheck func(ctx context.Context) error

// SystemHandler serves the health probes.
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    map[string]ReadinessCheck
	timeout   time.Duration
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]ReadinessCheck),
		timeout:   2 * time.Second,
	}
}

// AddCheck registers a dependency probed by Ready.
func (h *SystemHandler) AddCheck(name string, check ReadinessCheck) *SystemHandler {
	h.checks[name] = check
	return h
}

// RegisterRoutes mounts the probes at the engine root.
func (h *SystemHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string `json:"status"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Health reports that the process is serving
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// CheckResult is the outcome of one readiness probe
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadyResponse is the readiness payload
type ReadyResponse struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Ready probes every registered dependency and answers 503 when one fails.
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadyResponse{Status: "ready", Checks: make([]CheckResult, 0, len(names))}
	for _, name := range names {
		res := CheckResult{Name: name, Status: "up"}
		if err := h.checks[name](ctx); err != nil {
			res.Status = "down"
			res.Error = err.Error()
			resp.Status = "not_ready"
		}
		resp.Checks = append(resp.Checks, res)
	}

	if resp.Status != "ready" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	h.Success(c, resp)
}
