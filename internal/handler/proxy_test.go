package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"api-tester-proxy/internal/client"
	"api-tester-proxy/internal/config"
	"api-tester-proxy/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BodyMaxBytes: 1 << 20},
		Upstream: config.UpstreamConfig{
			DefaultTimeoutMs: 30000,
			MaxTimeoutMs:     300000,
			IdleConnections:  10,
			UserAgent:        "API-Tester-Proxy/1.0",
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProxyHandler(cfg *config.Config) *ProxyHandler {
	logger := discardLogger()
	c := client.NewClient(cfg, logger, nil)
	svc := service.NewProxyService(c, cfg, nil, logger)
	return NewProxyHandler(svc, logger)
}

func postProxy(t *testing.T, h *ProxyHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/proxy", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestProxyHandler_Handle_JSONUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer t0k3n" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer t0k3n")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(testConfig())
	rec := postProxy(t, h, `{"url":"`+upstream.URL+`/things","method":"put","headers":{"Authorization":"Bearer t0k3n"},"body":{"name":"x"}}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["status"] != float64(http.StatusCreated) {
		t.Errorf("status field = %v, want 201", body["status"])
	}
	if body["statusText"] != "Created" {
		t.Errorf("statusText = %v, want Created", body["statusText"])
	}
	data, ok := body["data"].(map[string]any)
	if !ok || data["id"] != float64(7) {
		t.Errorf("data = %v, want {id: 7}", body["data"])
	}
	headers, _ := body["headers"].(map[string]any)
	if headers["X-Upstream"] != "yes" {
		t.Errorf("headers[X-Upstream] = %v, want yes", headers["X-Upstream"])
	}
	timing, _ := body["timing"].(map[string]any)
	if d, _ := timing["duration"].(string); !strings.HasSuffix(d, "ms") {
		t.Errorf("timing.duration = %v, want a value ending in ms", timing["duration"])
	}
}

func TestProxyHandler_Handle_TextUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>hi</p>"))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(testConfig())
	rec := postProxy(t, h, `{"url":"`+upstream.URL+`"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := decodeBody(t, rec)["data"]; got != "<p>hi</p>" {
		t.Errorf("data = %v, want raw text", got)
	}
}

func TestProxyHandler_Handle_UpstreamErrorStatusPassesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"missing"}`))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(testConfig())
	rec := postProxy(t, h, `{"url":"`+upstream.URL+`"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if got := decodeBody(t, rec)["success"]; got != true {
		t.Errorf("success = %v, want true for a completed upstream call", got)
	}
}

func TestProxyHandler_Handle_NoContentUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	h := newTestProxyHandler(testConfig())
	rec := postProxy(t, h, `{"url":"`+upstream.URL+`","method":"DELETE"}`)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestProxyHandler_Handle_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"empty body", ``, service.CodeMissingURL},
		{"missing url", `{"method":"GET"}`, service.CodeMissingURL},
		{"invalid url", `{"url":"not a url"}`, service.CodeInvalidURL},
		{"unsupported scheme", `{"url":"ftp://example.com/file"}`, service.CodeInvalidURL},
		{"invalid method", `{"url":"http://example.com","method":"GE T"}`, service.CodeInvalidMethod},
		{"malformed json", `{"url":`, service.CodeInvalidBody},
		{"not an object", `["http://example.com"]`, service.CodeInvalidBody},
		{"second object after request", `{"url":"http://example.com"} {"url":"http://other.example.com"}`, service.CodeInvalidBody},
		{"trailing garbage", `{"url":"http://example.com"}xyz`, service.CodeInvalidBody},
	}

	h := newTestProxyHandler(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postProxy(t, h, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			body := decodeBody(t, rec)
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %q", body["code"], tt.wantCode)
			}
			if body["error"] == "" || body["error"] == nil {
				t.Error("expected an error message")
			}
			if _, ok := body["success"]; ok {
				t.Error("validation failures carry no success field")
			}
		})
	}
}

func TestProxyHandler_Handle_TransportFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedAddr := ln.Addr().String()
	_ = ln.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{"refused", `{"url":"http://` + closedAddr + `"}`, http.StatusBadGateway, "ECONNREFUSED", "Connection refused"},
		{"timeout", `{"url":"` + slow.URL + `","timeoutMs":50}`, http.StatusGatewayTimeout, "ETIMEDOUT", "Request timeout"},
	}

	h := newTestProxyHandler(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postProxy(t, h, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeBody(t, rec)
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %q", body["code"], tt.wantCode)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestProxyHandler_HandleQuery(t *testing.T) {
	var gotMethod, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer upstream.Close()

	h := newTestProxyHandler(testConfig())
	e := echo.New()
	target := upstream.URL + "/list?page=2"
	req := httptest.NewRequest(http.MethodGet, "/api/proxy?url="+url.QueryEscape(target), http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleQuery(c); err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("upstream method = %q, want GET", gotMethod)
	}
	if gotQuery != "page=2" {
		t.Errorf("upstream query = %q, want %q", gotQuery, "page=2")
	}
	data, ok := decodeBody(t, rec)["data"].([]any)
	if !ok || len(data) != 3 {
		t.Errorf("data = %v, want [1 2 3]", data)
	}
}

func TestProxyHandler_HandleQuery_MissingURL(t *testing.T) {
	h := newTestProxyHandler(testConfig())
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/proxy", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleQuery(c); err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := decodeBody(t, rec)["code"]; got != service.CodeMissingURL {
		t.Errorf("code = %v, want %q", got, service.CodeMissingURL)
	}
}

func TestBodyAllowedForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{100, false},
		{101, false},
		{200, true},
		{204, false},
		{304, false},
		{404, true},
		{502, true},
	}
	for _, tt := range tests {
		if got := bodyAllowedForStatus(tt.status); got != tt.want {
			t.Errorf("bodyAllowedForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDecodeProxyRequest(t *testing.T) {
	pr, err := decodeProxyRequest([]byte("{\"url\":\"http://example.com\",\"timeoutMs\":500}\n\t "))
	if err != nil {
		t.Fatalf("decodeProxyRequest() error = %v", err)
	}
	if pr.URL != "http://example.com" || pr.TimeoutMs == nil || *pr.TimeoutMs != 500 {
		t.Errorf("decoded = %+v", pr)
	}

	pr, err = decodeProxyRequest([]byte("   "))
	if err != nil || pr.URL != "" {
		t.Errorf("whitespace body: got %+v, %v; want empty request", pr, err)
	}
}
