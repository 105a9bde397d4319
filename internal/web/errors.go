package web

import (
	"net/http"

	"github.com/JonMunkholm/mtsload/internal/core"
	"github.com/JonMunkholm/mtsload/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs err with the request id and writes it as JSON with its
// error code.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	code := core.ErrorCode(err)

	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", code,
	)

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
