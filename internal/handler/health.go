package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"api-tester-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and info endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	started time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, started: time.Now()}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// infoResponse describes the running proxy.
type infoResponse struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	UserAgent     string   `json:"user_agent"`
	TimeoutMs     int64    `json:"default_timeout_ms"`
	MaxTimeoutMs  int64    `json:"max_timeout_ms"`
	Endpoints     []string `json:"endpoints"`
}

// Info returns proxy version, uptime and effective defaults.
func (h *HealthHandler) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, infoResponse{
		Name:          "api-tester-proxy",
		Version:       string(h.version),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		UserAgent:     h.cfg.Upstream.UserAgent,
		TimeoutMs:     h.cfg.Upstream.DefaultTimeoutMs,
		MaxTimeoutMs:  h.cfg.Upstream.MaxTimeoutMs,
		Endpoints: []string{
			"POST /api/proxy",
			"GET /api/proxy?url=",
			"GET /api/info",
			"GET /healthz",
		},
	})
}
