package service

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Observer is notified at fixed points of the pipeline. Implementations must
// be safe for concurrent use.
type Observer interface {
	RequestReceived(ctx context.Context, method, target string)
	DispatchComplete(ctx context.Context, method, target string, status int, elapsed time.Duration)
	RequestFailed(ctx context.Context, method, target, code string, err error)
}

// Observers fans every notification out to each member in order.
type Observers []Observer

func (o Observers) RequestReceived(ctx context.Context, method, target string) {
	for _, obs := range o {
		obs.RequestReceived(ctx, method, target)
	}
}

func (o Observers) DispatchComplete(ctx context.Context, method, target string, status int, elapsed time.Duration) {
	for _, obs := range o {
		obs.DispatchComplete(ctx, method, target, status, elapsed)
	}
}

func (o Observers) RequestFailed(ctx context.Context, method, target, code string, err error) {
	for _, obs := range o {
		obs.RequestFailed(ctx, method, target, code, err)
	}
}

type requestIDKey struct{}

// WithRequestID attaches the inbound request ID so observers can correlate entries.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LogObserver writes one structured log line per pipeline event.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With("component", "proxy")}
}

func (l *LogObserver) RequestReceived(ctx context.Context, method, target string) {
	l.logger.DebugContext(ctx, "proxy request received",
		"method", method,
		"url", redactURL(target),
		"request_id", requestID(ctx),
	)
}

func (l *LogObserver) DispatchComplete(ctx context.Context, method, target string, status int, elapsed time.Duration) {
	l.logger.InfoContext(ctx, "proxy dispatch complete",
		"method", method,
		"url", redactURL(target),
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID(ctx),
	)
}

func (l *LogObserver) RequestFailed(ctx context.Context, method, target, code string, err error) {
	l.logger.WarnContext(ctx, "proxy request failed",
		"method", method,
		"url", redactURL(target),
		"code", code,
		"err", redactErr(err),
		"request_id", requestID(ctx),
	)
}

// credentialInText matches name=value pairs whose name looks like it carries a secret.
var credentialInText = regexp.MustCompile(`(?i)([?&](?:[a-z0-9_\-]*(?:key|token|secret|password|passwd|signature|sig|auth)[a-z0-9_\-]*)=)[^&\s"]+`)

// redactURL masks userinfo passwords and credential-looking query values.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return credentialInText.ReplaceAllString(raw, "${1}[REDACTED]")
	}
	if u.RawQuery != "" {
		u.RawQuery = strings.TrimPrefix(credentialInText.ReplaceAllString("?"+u.RawQuery, "${1}[REDACTED]"), "?")
	}
	return u.Redacted()
}

// redactErr masks credentials in error text, which often embeds the target URL.
func redactErr(err error) string {
	if err == nil {
		return ""
	}
	return credentialInText.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
