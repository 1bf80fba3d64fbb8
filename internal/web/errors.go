package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and the request id, and
// returned to the client as a user-friendly message with a support code
// from core.MapError.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/logging"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status of a domain error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNoDataset),
		errors.Is(err, core.ErrUnknownRow),
		errors.Is(err, core.ErrStateNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnreadableFile),
		errors.Is(err, core.ErrTooFewRows),
		errors.Is(err, core.ErrMissingHeader),
		errors.Is(err, core.ErrNoResultColumns):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnknownChemicalSet),
		errors.Is(err, core.ErrUnknownDeviceGroup),
		errors.Is(err, core.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrStaleGeneration):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user message. A zero status is
// derived from the error.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
