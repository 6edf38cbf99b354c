package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"api-tester-proxy/internal/config"
)

func TestCORS_Preflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(config.CORSConfig{AllowOrigins: []string{"https://tester.example.com"}}))
	e.POST("/api/proxy", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/proxy", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://tester.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if v := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); v != "https://tester.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "https://tester.example.com")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	e := echo.New()
	e.Use(CORS(config.CORSConfig{AllowOrigins: []string{"https://tester.example.com"}}))
	e.POST("/api/proxy", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/proxy", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example.net")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); v != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", v)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	e := echo.New()
	e.Use(CORS(config.CORSConfig{AllowOrigins: []string{"*"}}))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "*")
	}
}
