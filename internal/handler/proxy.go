package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"api-tester-proxy/internal/model"
	"api-tester-proxy/internal/service"
)

// ProxyHandler exposes the proxy pipeline over HTTP.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle accepts a JSON proxy request body and replies with the envelope.
// The body is decoded whatever Content-Type the caller declared; an empty
// body is treated as a request with no url. Anything after the request
// object other than whitespace is rejected.
func (h *ProxyHandler) Handle(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return fmt.Errorf("read proxy request: %w", err)
	}

	pr, err := decodeProxyRequest(raw)
	if err != nil {
		h.logger.Debug("decoding proxy request", "err", err)
		return c.JSON(http.StatusBadRequest, &model.ValidationFailure{
			Error: "request body must be a single JSON object",
			Code:  service.CodeInvalidBody,
			Hint:  `{"url": "https://api.example.com/resource", "method": "GET", "headers": {}, "body": null, "timeoutMs": 30000}`,
		})
	}
	return h.execute(c, pr)
}

func decodeProxyRequest(raw []byte) (model.ProxyRequest, error) {
	var pr model.ProxyRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&pr); err != nil {
		if errors.Is(err, io.EOF) {
			return model.ProxyRequest{}, nil
		}
		return model.ProxyRequest{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.ProxyRequest{}, errors.New("unexpected data after request object")
	}
	return pr, nil
}

// HandleQuery serves GET /api/proxy?url=..., equivalent to {url, method: "GET"}.
func (h *ProxyHandler) HandleQuery(c echo.Context) error {
	return h.execute(c, model.ProxyRequest{
		URL:    c.QueryParam("url"),
		Method: http.MethodGet,
	})
}

func (h *ProxyHandler) execute(c echo.Context, pr model.ProxyRequest) error {
	req := c.Request()
	ctx := service.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))

	reply := h.service.Execute(ctx, pr)
	if !bodyAllowedForStatus(reply.Status) {
		return c.NoContent(reply.Status)
	}
	return c.JSON(reply.Status, reply.Body)
}

// bodyAllowedForStatus reports whether a response with this status may carry a body.
func bodyAllowedForStatus(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
