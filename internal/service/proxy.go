// Package service implements the proxy pipeline: validate the caller's
// request, dispatch it upstream once, and translate the outcome into an
// envelope.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"api-tester-proxy/internal/config"
	"api-tester-proxy/internal/model"
)

// Dispatcher executes one outbound call.
type Dispatcher interface {
	Dispatch(ctx context.Context, out *model.Outbound) (*model.UpstreamResult, error)
}

// ProxyService runs the Validate → Dispatch → Translate pipeline. It holds no
// per-request state and is safe for concurrent use.
type ProxyService struct {
	dispatcher Dispatcher
	normalizer *Normalizer
	userAgent  string
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
}

// NewProxyService creates a ProxyService.
func NewProxyService(d Dispatcher, cfg *config.Config, obs Observer, logger *slog.Logger) *ProxyService {
	if obs == nil {
		obs = Observers{}
	}
	return &ProxyService{
		dispatcher: d,
		normalizer: NewNormalizer(cfg),
		userAgent:  cfg.Upstream.UserAgent,
		observer:   obs,
		logger:     logger.With("component", "proxy_service"),
		now:        time.Now,
	}
}

// Execute runs one proxy request to completion. Every outcome, including
// validation and transport failures, is returned as a Reply; nothing escapes
// as an error.
func (s *ProxyService) Execute(ctx context.Context, req model.ProxyRequest) model.Reply {
	start := s.now()
	s.observer.RequestReceived(ctx, req.Method, req.URL)

	n, err := s.normalizer.Normalize(req)
	if err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			ve = &ValidationError{Code: CodeInvalidURL, Message: err.Error(), URL: req.URL}
		}
		s.observer.RequestFailed(ctx, req.Method, req.URL, ve.Code, err)
		return model.Reply{Status: http.StatusBadRequest, Body: translateValidation(ve)}
	}

	out := buildOutbound(n, s.userAgent)
	target := out.URL()

	s.logger.DebugContext(ctx, "forwarding request",
		"method", out.Method(),
		"host", n.URL.Host,
		"timeout_ms", out.Timeout().Milliseconds(),
		"has_body", out.HasBody(),
	)

	res, err := s.dispatcher.Dispatch(ctx, out)
	if err != nil {
		return s.fail(ctx, out.Method(), target, err, start)
	}

	end := s.now()
	env, err := translateSuccess(res, start, end)
	if err != nil {
		return s.fail(ctx, out.Method(), target, err, start)
	}

	s.observer.DispatchComplete(ctx, out.Method(), target, res.StatusCode, end.Sub(start))
	return model.Reply{Status: res.StatusCode, Body: env}
}

func (s *ProxyService) fail(ctx context.Context, method, target string, err error, start time.Time) model.Reply {
	status, env := translateFailure(err, start, s.now())
	s.observer.RequestFailed(ctx, method, target, env.Code, err)
	return model.Reply{Status: status, Body: env}
}
