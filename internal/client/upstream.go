// Package client executes outbound calls to arbitrary upstream HTTP servers.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"api-tester-proxy/internal/config"
	"api-tester-proxy/internal/metrics"
	"api-tester-proxy/internal/model"
)

// DialContextFunc dials upstream connections.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Option customises a Client.
type Option func(*options)

type options struct {
	dial DialContextFunc
}

// WithDialContext replaces the default dialer.
func WithDialContext(fn DialContextFunc) Option {
	return func(o *options) { o.dial = fn }
}

// Client sends exactly one request per Dispatch to the upstream named in the
// outbound descriptor. It never retries.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a Client with connection pooling. Deadlines are per call,
// taken from the outbound descriptor.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Client {
	o := options{
		dial: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext:         o.dial,
		// Bodies and Content-Encoding/Content-Length are relayed as the
		// upstream sent them; only the caller decides on Accept-Encoding.
		DisableCompression: true,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		logger:     logger.With("component", "upstream_client"),
		metrics:    m,
	}
}

// Dispatch executes the outbound call and reads the whole response body
// within the descriptor's deadline. Any failure is a *TransportError.
func (c *Client) Dispatch(ctx context.Context, out *model.Outbound) (*model.UpstreamResult, error) {
	ctx, cancel := context.WithTimeout(ctx, out.Timeout())
	defer cancel()

	var body io.Reader = http.NoBody
	if out.HasBody() {
		body = bytes.NewReader(out.Body())
	}

	req, err := http.NewRequestWithContext(ctx, out.Method(), out.URL(), body)
	if err != nil {
		return nil, &TransportError{Kind: KindUnknown, Err: fmt.Errorf("build upstream request: %w", err)}
	}
	req.Header = out.Header()
	if out.Host() != "" {
		req.Host = out.Host()
	}

	c.logger.Debug("upstream request",
		"method", req.Method,
		"host", req.URL.Host,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		te := newTransportError(ctx, fmt.Errorf("upstream request: %w", err))
		c.observe(req.Method, start, 0, te)
		return nil, te
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		te := newTransportError(ctx, fmt.Errorf("read upstream body: %w", err))
		c.observe(req.Method, start, 0, te)
		return nil, te
	}
	c.observe(req.Method, start, resp.StatusCode, nil)

	return &model.UpstreamResult{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Client) observe(method string, start time.Time, status int, te *TransportError) {
	if c.metrics == nil {
		return
	}
	m := metrics.NormalizeMethod(method)
	c.metrics.UpstreamDuration.WithLabelValues(m).Observe(time.Since(start).Seconds())
	if te != nil {
		c.metrics.UpstreamFailures.WithLabelValues(m, te.Kind.String()).Inc()
		return
	}
	c.metrics.UpstreamResponses.WithLabelValues(m, metrics.StatusClass(status)).Inc()
}

// statusText returns the reason phrase the upstream sent, falling back to the
// standard text for the code.
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text, ok := strings.CutPrefix(resp.Status, code+" "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
