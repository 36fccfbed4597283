package auth

import (
	"net/http"

	"github.com/rs/zerolog/log"

	respond "github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/api/respond"
)

// Middleware rejects requests without a caller identity with 401 and stores
// the identity on the request context otherwise.
func Middleware(ex Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := ex.Extract(r)
			if err != nil {
				log.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("request not authorized")
				respond.Error(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), c)))
		})
	}
}
