package service

import (
	"errors"
	"net/http"

	"api-tester-proxy/internal/client"
)

// Failure codes surfaced in failure envelopes.
const (
	CodeNotFound    = "ENOTFOUND"
	CodeRefused     = "ECONNREFUSED"
	CodeTimedOut    = "ETIMEDOUT"
	CodeUnknown     = "UNKNOWN"
	CodeInvalidJSON = "EINVALIDJSON"
)

type failureClass struct {
	status  int
	code    string
	message string
}

// failureTable maps each transport failure kind to its outward status and code.
var failureTable = map[client.Kind]failureClass{
	client.KindResolution: {http.StatusNotFound, CodeNotFound, "Host not found"},
	client.KindRefused:    {http.StatusBadGateway, CodeRefused, "Connection refused"},
	client.KindTimeout:    {http.StatusGatewayTimeout, CodeTimedOut, "Request timeout"},
	client.KindUnknown:    {http.StatusInternalServerError, CodeUnknown, ""},
}

// DecodeError means the upstream declared a JSON content type but sent a body
// that does not parse as JSON.
type DecodeError struct {
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return "upstream declared " + e.ContentType + " but sent invalid JSON: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// classifyFailure returns the outward status, code and message for a
// dispatch or decode failure. Anything unrecognised takes the generic 500 path.
func classifyFailure(err error) (status int, code, message string) {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusBadGateway, CodeInvalidJSON, decodeErr.Error()
	}

	kind := client.KindUnknown
	var te *client.TransportError
	if errors.As(err, &te) {
		kind = te.Kind
	}

	class := failureTable[kind]
	status, code, message = class.status, class.code, class.message
	if kind == client.KindUnknown {
		if te != nil && te.Errno != "" {
			code = te.Errno
		}
		message = err.Error()
	}
	return status, code, message
}
