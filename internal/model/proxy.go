// Package model defines shared types for the proxy.
package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProxyRequest is the caller's description of the outbound call to perform.
type ProxyRequest struct {
	URL       string            `json:"url"`
	Method    string            `json:"method,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      json.RawMessage   `json:"body,omitempty"`
	TimeoutMs *int64            `json:"timeoutMs,omitempty"`
}

// Outbound is the canonical, immutable description of one upstream call.
// Build it with NewOutbound; the accessors hand out copies.
type Outbound struct {
	method  string
	url     string
	host    string
	header  http.Header
	body    []byte
	timeout time.Duration
}

// NewOutbound creates an Outbound. The header and body are copied.
func NewOutbound(method, url, host string, header http.Header, body []byte, timeout time.Duration) *Outbound {
	var b []byte
	if body != nil {
		b = append([]byte{}, body...)
	}
	return &Outbound{
		method:  method,
		url:     url,
		host:    host,
		header:  header.Clone(),
		body:    b,
		timeout: timeout,
	}
}

// Method returns the uppercased HTTP method.
func (o *Outbound) Method() string { return o.method }

// URL returns the absolute target URL.
func (o *Outbound) URL() string { return o.url }

// Host returns the caller-supplied Host override, or empty.
func (o *Outbound) Host() string { return o.host }

// Header returns a copy of the outbound header set.
func (o *Outbound) Header() http.Header { return o.header.Clone() }

// Body returns a copy of the outbound body, or nil when the call carries none.
func (o *Outbound) Body() []byte {
	if o.body == nil {
		return nil
	}
	return append([]byte{}, o.body...)
}

// HasBody reports whether the call carries a body.
func (o *Outbound) HasBody() bool { return o.body != nil }

// Timeout returns the hard deadline for the call.
func (o *Outbound) Timeout() time.Duration { return o.timeout }

// UpstreamResult is the raw upstream response, fully read.
type UpstreamResult struct {
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
}

// PayloadKind tells which variant a Payload holds.
type PayloadKind int

const (
	// PayloadRaw holds verbatim response text.
	PayloadRaw PayloadKind = iota
	// PayloadStructured holds a decoded JSON value.
	PayloadStructured
)

// Payload is a decoded upstream body: either Structured(JSON value) or Raw(text).
type Payload struct {
	kind  PayloadKind
	value any
	text  string
}

// Structured wraps a decoded JSON value.
func Structured(v any) Payload {
	return Payload{kind: PayloadStructured, value: v}
}

// Raw wraps verbatim response text.
func Raw(s string) Payload {
	return Payload{kind: PayloadRaw, text: s}
}

// Kind returns the payload variant.
func (p Payload) Kind() PayloadKind { return p.kind }

// Value returns the decoded JSON value for structured payloads, or the text for raw ones.
func (p Payload) Value() any {
	if p.kind == PayloadStructured {
		return p.value
	}
	return p.text
}

// MarshalJSON renders structured payloads as JSON and raw payloads as a JSON string.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}

// Timing carries the start/end epoch milliseconds of a call and the formatted duration.
type Timing struct {
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Duration string `json:"duration"`
}

// NewTiming builds a Timing from two instants.
func NewTiming(start, end time.Time) Timing {
	s, e := start.UnixMilli(), end.UnixMilli()
	return Timing{
		Start:    s,
		End:      e,
		Duration: fmt.Sprintf("%dms", e-s),
	}
}

// SuccessEnvelope is returned when the upstream produced a response.
type SuccessEnvelope struct {
	Success    bool              `json:"success"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       Payload           `json:"data"`
	Timing     Timing            `json:"timing"`
}

// FailureEnvelope is returned when the upstream call could not complete.
type FailureEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Timing  Timing `json:"timing"`
}

// ValidationFailure is returned before any outbound call when the request is unusable.
type ValidationFailure struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Hint  string `json:"hint,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Reply is the outward status and JSON body for one proxy call.
type Reply struct {
	Status int
	Body   any
}
