package client

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Kind is the closed set of transport failure classes.
type Kind int

const (
	// KindUnknown is any transport or protocol failure not covered below.
	KindUnknown Kind = iota
	// KindResolution means the target host name could not be resolved.
	KindResolution
	// KindRefused means the target actively refused the connection.
	KindRefused
	// KindTimeout means the per-call deadline elapsed.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindRefused:
		return "refused"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// TransportError is returned by Dispatch when no upstream response was obtained.
type TransportError struct {
	Kind Kind
	// Errno is the symbolic name of the underlying system error (e.g. "ECONNRESET"), if any.
	Errno string
	Err   error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// newTransportError classifies err. ctx is the per-call context; its
// deadline is authoritative for timeouts even when the transport reports
// something else (e.g. a body read aborted by cancellation).
func newTransportError(ctx context.Context, err error) *TransportError {
	kind := Classify(err)
	if kind != KindTimeout && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &TransportError{
		Kind:  kind,
		Errno: errnoName(err),
		Err:   err,
	}
}

// Classify maps a transport error to its Kind. It is a pure function of the
// error chain; unrecognised errors are KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindResolution
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindRefused
	}

	return KindUnknown
}
