package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted for the client: an HTML fragment for HTMX, JSON otherwise
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err), optionally with an explicit status
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered in appropriate format for the client

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/gwasupload/internal/core"
	"github.com/JonMunkholm/gwasupload/internal/logging"
	"github.com/JonMunkholm/gwasupload/internal/web/views"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errBadRequest  = errors.New("malformed request")
)

// badRequestMessage (REQ001) covers requests the browser form never sends:
// broken multipart bodies, invalid JSON, unparsable numbers.
var badRequestMessage = core.UserMessage{
	Message: "The request could not be read",
	Action:  "Reload the page and try again",
	Code:    "REQ001",
}

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrSubmissionMissing):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoFileSelected),
		errors.Is(err, core.ErrOptionsConfirmed),
		errors.Is(err, core.ErrNotAccepted):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidOptions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError handles error responses with user-friendly messages.
// The status defaults to statusFor(err).
func respondError(w http.ResponseWriter, r *http.Request, err error, status ...int) {
	statusCode := statusFor(err)
	if len(status) > 0 {
		statusCode = status[0]
	}
	userMsg := core.MapError(err)
	if errors.Is(err, errBadRequest) {
		userMsg = badRequestMessage
	}

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Info("request rejected", args...)
	}

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, statusCode)
		return
	}
	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	views.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
