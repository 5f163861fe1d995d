package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Stable error codes returned in the "code" field so clients need not parse messages.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeConflict             = "conflict"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeMissingAuthorization = "missing_authorization"
	CodeMalformedAuth        = "malformed_authorization"
	CodeInvalidToken         = "invalid_token"
	CodeNotFound             = "not_found"
	CodeRateLimited          = "rate_limited"
	CodeInternal             = "internal_error"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSON writes payload as the response body.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("respond: encode payload failed")
	}
}

// Error writes an error response with a stable code.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Error: message, Code: code})
}

// ServerError hides internal detail behind a generic 500.
func ServerError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, CodeInternal, "server error")
}
