package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-Id"

// RequestID attaches a request-scoped logger carrying the caller's request
// id, or a fresh one, and echoes the id on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		l := log.Logger.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}
