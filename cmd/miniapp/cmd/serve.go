package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/miniapp/internal/config"
	h "github.com/fjod/miniapp/internal/http"
	"github.com/fjod/miniapp/internal/logging"
	"github.com/fjod/miniapp/internal/metrics"
	"github.com/fjod/miniapp/internal/repository"
	"github.com/fjod/miniapp/internal/service"
	"github.com/fjod/miniapp/internal/telemetry"
	"github.com/fjod/miniapp/internal/upstream"
	"github.com/fjod/miniapp/internal/webui"
)

const serviceName = "miniapp"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server that serves the Mini App page, the JSON API
under /api and Prometheus metrics under /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// stores bundles the repositories and the cleanup for their backend.
type stores struct {
	carts    repository.CartRepository
	sessions repository.SessionRepository
	close    func() error
}

func openStores(ctx context.Context, cfg config.StoreConfig) (*stores, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client, err := repository.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return &stores{
			carts:    repository.NewRedisCartRepository(client, cfg.KeyPrefix),
			sessions: repository.NewRedisSessionRepository(client, cfg.KeyPrefix),
			close:    client.Close,
		}, nil
	case config.BackendMemory, "":
		return &stores{
			carts:    repository.NewMemoryCartRepository(),
			sessions: repository.NewMemorySessionRepository(),
			close:    func() error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// newServer wires every layer of the HTTP process.
func newServer(cfg *config.Config, st *stores, m *metrics.Metrics, log logrus.FieldLogger) *http.Server {
	client := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	}, log, m)

	carts := service.NewCartService(st.carts, m, log)
	sessions := service.NewSessionService(st.sessions, client, client, log)

	router := h.NewRouter(h.RouterDeps{
		Cart:    h.NewCartHandler(carts, cfg.Server.RequestTimeout, cfg.Server.MaxRequestBodySize, log),
		Session: h.NewSessionHandler(sessions, cfg.Server.RequestTimeout, cfg.Server.MaxRequestBodySize, log),
		Catalog: h.NewCatalogHandler(client, sessions, cfg.Server.RequestTimeout, log),
		Health:  h.NewHealthHandler(carts, sessions, log),
		Index:   webui.Handler(),
		Metrics: m,
		Log:     log,
	})

	return &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(cfg.Tracing.Enabled, serviceName, traceOutput(cfg.Tracing.Enabled))
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	st, err := openStores(cmd.Context(), cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() {
		if err := st.close(); err != nil {
			log.WithError(err).Warn("store close failed")
		}
	}()

	srv := newServer(cfg, st, metrics.New(), log)

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"store":   cfg.Store.Backend,
			"tracing": cfg.Tracing.Enabled,
		}).Info("mini app server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func traceOutput(enabled bool) io.Writer {
	if enabled {
		return os.Stdout
	}
	return io.Discard
}
