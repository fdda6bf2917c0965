package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with full technical detail and the request ID,
// then returned to the client as the coded message from core.MapError.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/AssetRecon/internal/core"
	"github.com/JonMunkholm/AssetRecon/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Action  string          `json:"action,omitempty"`
	Code    string          `json:"code"`
	Report  *core.RunReport `json:"report,omitempty"`
}

// respondError logs err and writes its user-facing form. A status of 0
// derives the status from the error.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	respondErrorReport(w, r, err, status, nil)
}

// respondErrorReport is respondError with the report of a failed run attached.
func respondErrorReport(w http.ResponseWriter, r *http.Request, err error, status int, report *core.RunReport) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request error", "path", r.URL.Path, "method", r.Method,
			"status", status, "error", err.Error(), "code", msg.Code)
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "method", r.Method,
			"status", status, "error", err.Error(), "code", msg.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Report:  report,
	})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var (
		identityErr *core.IdentityKeyError
		sinkErr     *core.SinkError
	)
	switch {
	case errors.Is(err, core.ErrPipelineBusy):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoReport):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoSources), errors.As(err, &identityErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &sinkErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
