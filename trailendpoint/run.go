// Package trailendpoint runs the HTTP service that writes titles and
// licenses and verifies an owner's most recent license.
package trailendpoint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/api"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/auth"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/config"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/factory"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/health"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/keys"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/logger"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/repository"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/services"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/txn"
)

// Run starts the trail endpoint HTTP server and blocks until shutdown or error.
func Run() error {
	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	lg := logger.NewWithWriter(os.Stdout, "trail-endpoint", cfg.LogLevel)
	log.Logger = lg

	lg.Info().
		Str("db_driver", cfg.DBDriver).
		Str("queue_driver", cfg.QueueDriver).
		Str("auth_mode", cfg.AuthMode).
		Int("http_port", cfg.HTTPPort).
		Msg("Trail endpoint starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, q, err := initDependencies(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()
	defer func() { _ = st.Close() }()

	svcHealth := startHealthCheckers(ctx, cfg, lg, st, q)
	router := buildRouter(st, q, svcHealth, cfg, lg)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		lg.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, lg, cfg)

	select {
	case <-ctx.Done():
		lg.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			lg.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		lg.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		lg.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies opens the store and the ordered queue; both are required.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, *factory.OrderedQueue, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, nil, err
	}
	q, err := factory.NewQueue(ctx, cfg, st, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Queue adapter unavailable")
		_ = st.Close()
		return nil, nil, err
	}
	return st, q, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(st store.Store, q *factory.OrderedQueue, svcHealth *health.ServiceHealthChecker, cfg *config.Config, log zerolog.Logger) *mux.Router {
	svc := services.NewLicenseService(
		txn.NewBuilder(),
		repository.NewWriter(q.Queue),
		repository.NewReader(st.Ledger()),
		log,
	)
	license := api.NewLicenseHandler(svc, keys.NewSource(st.Keys()))
	return api.NewRouter(license, api.NewHealthHandler(svcHealth.IsHealthy), auth.NewExtractor(cfg.AuthMode))
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store, q *factory.OrderedQueue) *health.ServiceHealthChecker {
	var checkers []health.HealthChecker
	if p, ok := factory.StorePinger(st); ok {
		c := health.NewPingChecker("store", p, log, cfg.HealthProbeTimeout())
		go c.Start(ctx, cfg.HealthInterval())
		checkers = append(checkers, c)
	}
	if q.Pinger != nil {
		c := health.NewPingChecker("queue", q.Pinger, log, cfg.HealthProbeTimeout())
		go c.Start(ctx, cfg.HealthInterval())
		checkers = append(checkers, c)
	}
	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, cfg.HealthInterval())
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// startupHealthTimeout is twice the health interval, at least 60 seconds.
func startupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := startupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
