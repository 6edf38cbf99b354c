package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"api-tester-proxy/internal/config"
	"api-tester-proxy/internal/model"
)

// Validation error codes.
const (
	CodeMissingURL    = "MISSING_URL"
	CodeInvalidURL    = "INVALID_URL"
	CodeInvalidMethod = "INVALID_METHOD"
	CodeInvalidHeader = "INVALID_HEADER"
	CodeInvalidBody   = "INVALID_BODY"
)

const (
	hintRequestShape = `send {"url": "https://api.example.com/resource", "method": "GET", "headers": {}, "body": null, "timeoutMs": 30000} or GET /api/proxy?url=...`
	hintURL          = "url must be absolute and use http or https, e.g. https://api.example.com/resource"
)

// ValidationError rejects a proxy request before any outbound call is attempted.
type ValidationError struct {
	Code    string
	Message string
	Hint    string
	URL     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// bodyKind tells how a caller-supplied body must be sent.
type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyText
	bodyStructured
)

// Normalized is a validated proxy request.
type Normalized struct {
	URL      *url.URL
	Method   string
	Headers  map[string]string
	Timeout  time.Duration
	bodyKind bodyKind
	body     []byte
}

// Normalizer validates and shapes caller requests.
type Normalizer struct {
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

// NewNormalizer creates a Normalizer using the upstream timeout settings.
func NewNormalizer(cfg *config.Config) *Normalizer {
	return &Normalizer{
		defaultTimeout: time.Duration(cfg.Upstream.DefaultTimeoutMs) * time.Millisecond,
		maxTimeout:     time.Duration(cfg.Upstream.MaxTimeoutMs) * time.Millisecond,
	}
}

// Normalize validates req. It has no side effects and returns a
// *ValidationError for any request that must not reach the network.
func (n *Normalizer) Normalize(req model.ProxyRequest) (*Normalized, error) {
	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return nil, &ValidationError{
			Code:    CodeMissingURL,
			Message: "URL is required",
			Hint:    hintRequestShape,
		}
	}

	target, err := parseTarget(raw)
	if err != nil {
		return nil, &ValidationError{
			Code:    CodeInvalidURL,
			Message: "Invalid URL format",
			Hint:    hintURL,
			URL:     req.URL,
		}
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, &ValidationError{
			Code:    CodeInvalidMethod,
			Message: fmt.Sprintf("invalid HTTP method %q", req.Method),
			Hint:    "method must be an HTTP token such as GET, POST, PUT, PATCH or DELETE",
		}
	}

	for name, value := range req.Headers {
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, &ValidationError{
				Code:    CodeInvalidHeader,
				Message: fmt.Sprintf("invalid header %q", name),
				Hint:    "header names must be HTTP tokens and values must not contain control characters",
			}
		}
	}

	out := &Normalized{
		URL:     target,
		Method:  method,
		Headers: req.Headers,
		Timeout: n.timeout(req.TimeoutMs),
	}

	if bodyAllowed(method) {
		kind, body, err := decodeRequestBody(req.Body)
		if err != nil {
			return nil, &ValidationError{
				Code:    CodeInvalidBody,
				Message: "body must be a string or a JSON value",
				Hint:    hintRequestShape,
			}
		}
		out.bodyKind, out.body = kind, body
	}

	return out, nil
}

// timeout resolves the per-call deadline: unset or non-positive values use
// the default, larger values are clamped to the maximum.
func (n *Normalizer) timeout(ms *int64) time.Duration {
	if ms == nil || *ms <= 0 {
		return n.defaultTimeout
	}
	// Compare in milliseconds: huge values overflow a Duration.
	if n.maxTimeout > 0 && *ms > n.maxTimeout.Milliseconds() {
		return n.maxTimeout
	}
	if *ms > math.MaxInt64/int64(time.Millisecond) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(*ms) * time.Millisecond
}

// parseTarget accepts only absolute http(s) URLs with a host.
func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	return u, nil
}

// bodyAllowed reports whether method may carry a body. GET and HEAD never do.
func bodyAllowed(method string) bool {
	return !strings.EqualFold(method, http.MethodGet) && !strings.EqualFold(method, http.MethodHead)
}

// decodeRequestBody splits a caller body into its variant. JSON strings are
// sent verbatim; any other JSON value is re-serialised compactly. Absent,
// null and empty-string bodies mean "no body".
func decodeRequestBody(raw json.RawMessage) (bodyKind, []byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return bodyNone, nil, nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return bodyNone, nil, err
		}
		if s == "" {
			return bodyNone, nil, nil
		}
		return bodyText, []byte(s), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return bodyNone, nil, err
	}
	return bodyStructured, buf.Bytes(), nil
}
