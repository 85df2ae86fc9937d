package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Never accompanied by a partial dataset
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered as JSON, or as HTML for the table page

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/GDPExplorer/internal/core"
	"github.com/JonMunkholm/GDPExplorer/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	// Source names the file that could not be read.
	Source string `json:"source,omitempty"`
}

// statusFor picks the HTTP status for err.
//
// A configured dataset that cannot be read is a server-side problem (503).
// An uploaded file that cannot be cleaned is the client's problem (422).
func statusFor(err error, upload bool) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, core.ErrSourceTooLarge) && upload:
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrSourceUnavailable):
		if upload {
			return http.StatusUnprocessableEntity
		}
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrTooManyCleans):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nginx convention
		return 499
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "request body too large") {
		return http.StatusRequestEntityTooLarge
	}
	if strings.Contains(msg, "missing parameter") || strings.Contains(msg, "no file provided") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns a JSON body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	respondErrorJSON(w, userMsg, sourceOf(err), statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, source string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Source:  source,
	})
}

// sourceOf returns the file named by a *core.SourceError in err.
func sourceOf(err error) string {
	var se *core.SourceError
	if errors.As(err, &se) {
		return se.Source
	}
	return ""
}
