// Package recovery keeps a panicking handler from killing the connection
// without an answer.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/api/respond"
)

// Middleware answers 500 with the standard error envelope when next panics
// and logs the panic value with its stack.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			respond.Internal(w, "")
		}()
		next.ServeHTTP(w, r)
	})
}
