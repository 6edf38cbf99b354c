package service

import (
	"maps"
	"net/http"
	"slices"
	"strings"

	"api-tester-proxy/internal/model"
)

// buildOutbound overlays the caller's headers on the default User-Agent and
// attaches the body. Caller headers win on a case-insensitive collision. A
// structured body gets Content-Type: application/json unless the caller
// already supplied one.
func buildOutbound(n *Normalized, userAgent string) *model.Outbound {
	header := http.Header{}
	header.Set("User-Agent", userAgent)

	var host string
	// Sorted so that duplicate names differing only in case resolve the same way every time.
	for _, name := range slices.Sorted(maps.Keys(n.Headers)) {
		value := n.Headers[name]
		if strings.EqualFold(name, "Host") {
			host = value
			continue
		}
		header.Set(name, value)
	}

	var body []byte
	switch n.bodyKind {
	case bodyText:
		body = n.body
	case bodyStructured:
		body = n.body
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	}

	return model.NewOutbound(n.Method, n.URL.String(), host, header, body, n.Timeout)
}
