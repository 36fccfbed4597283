// Package respond renders API responses. Failures share the ErrorResponse
// envelope so clients can branch on the numeric code.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// JSON encodes v as the response body. The status line is already sent when
// encoding fails, so the failure is only logged.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("encode response")
	}
}

// Error sends the envelope for status; message may be empty.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: http.StatusText(status), Code: status, Message: message})
}

func BadRequest(w http.ResponseWriter, message string) { Error(w, http.StatusBadRequest, message) }

func Unauthorized(w http.ResponseWriter, message string) { Error(w, http.StatusUnauthorized, message) }

func Internal(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}
