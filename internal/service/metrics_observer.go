package service

import (
	"context"
	"time"

	"api-tester-proxy/internal/metrics"
)

var validationCodes = map[string]bool{
	CodeMissingURL:    true,
	CodeInvalidURL:    true,
	CodeInvalidMethod: true,
	CodeInvalidHeader: true,
	CodeInvalidBody:   true,
}

// MetricsObserver counts how each proxy request ended.
type MetricsObserver struct {
	m *metrics.Metrics
}

// NewMetricsObserver creates a MetricsObserver recording into m.
func NewMetricsObserver(m *metrics.Metrics) *MetricsObserver {
	return &MetricsObserver{m: m}
}

func (o *MetricsObserver) RequestReceived(context.Context, string, string) {}

func (o *MetricsObserver) DispatchComplete(_ context.Context, _, _ string, status int, _ time.Duration) {
	o.m.Outcomes.WithLabelValues(metrics.OutcomeRelayed, metrics.StatusClass(status)).Inc()
}

func (o *MetricsObserver) RequestFailed(_ context.Context, _, _, code string, _ error) {
	outcome := metrics.OutcomeFailed
	if validationCodes[code] {
		outcome = metrics.OutcomeRejected
	}
	o.m.Outcomes.WithLabelValues(outcome, code).Inc()
}
