package handler

import (
	"github.com/labstack/echo/v4"

	"api-tester-proxy/internal/config"
	"api-tester-proxy/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Rate
// limiting, when enabled, applies to the proxy routes only.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, proxy *ProxyHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/api/info", health.Info)

	var limit []echo.MiddlewareFunc
	if cfg.Server.RateLimit.Enabled {
		limit = append(limit, middleware.RateLimiter(cfg.Server.RateLimit))
	}

	g := e.Group("/api/proxy", limit...)
	g.POST("", proxy.Handle)
	g.GET("", proxy.HandleQuery)
}
