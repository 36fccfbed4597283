package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/api/recovery"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/auth"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/metrics"
)

// NewRouter wires the public routes. Title and license routes require a
// caller identity resolved by ex.
func NewRouter(license *LicenseHandler, health *HealthHandler, ex auth.Extractor) *mux.Router {
	root := mux.NewRouter()
	root.Use(RequestID)
	root.Use(recovery.Middleware)

	root.HandleFunc("/api/health", health.CheckHealth).Methods(http.MethodGet)
	root.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authed := root.NewRoute().Subrouter()
	authed.Use(auth.Middleware(ex))
	authed.HandleFunc("/license/create", license.CreateLicense).Methods(http.MethodPost)
	authed.HandleFunc("/license/verify", license.VerifyLicense).Methods(http.MethodPost)
	authed.HandleFunc("/title/create", license.CreateTitle).Methods(http.MethodPost)

	return root
}
