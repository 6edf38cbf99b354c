package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"api-tester-proxy/internal/model"
)

// IsJSONContentType reports whether a declared content type selects JSON decoding.
func IsJSONContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

// decodePayload turns an upstream body into Structured or Raw according to
// the declared content type. Numbers keep their exact textual form. An empty
// body is Raw("") whatever the content type.
func decodePayload(contentType string, body []byte) (model.Payload, error) {
	if !IsJSONContentType(contentType) || len(bytes.TrimSpace(body)) == 0 {
		return model.Raw(string(body)), nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return model.Payload{}, &DecodeError{ContentType: contentType, Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.Payload{}, &DecodeError{ContentType: contentType, Err: errors.New("trailing data after JSON value")}
	}
	return model.Structured(v), nil
}

// flattenHeaders copies every upstream header; repeated values are joined with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// translateSuccess builds the success envelope for an upstream response.
func translateSuccess(res *model.UpstreamResult, start, end time.Time) (*model.SuccessEnvelope, error) {
	data, err := decodePayload(res.Header.Get("Content-Type"), res.Body)
	if err != nil {
		return nil, err
	}
	return &model.SuccessEnvelope{
		Success:    true,
		Status:     res.StatusCode,
		StatusText: res.StatusText,
		Headers:    flattenHeaders(res.Header),
		Data:       data,
		Timing:     model.NewTiming(start, end),
	}, nil
}

// translateFailure builds the failure envelope and its outward status.
func translateFailure(err error, start, end time.Time) (int, *model.FailureEnvelope) {
	status, code, message := classifyFailure(err)
	return status, &model.FailureEnvelope{
		Success: false,
		Error:   message,
		Code:    code,
		Timing:  model.NewTiming(start, end),
	}
}

// translateValidation builds the client-error body for a rejected request.
func translateValidation(ve *ValidationError) *model.ValidationFailure {
	return &model.ValidationFailure{
		Error: ve.Message,
		Code:  ve.Code,
		Hint:  ve.Hint,
		URL:   ve.URL,
	}
}
