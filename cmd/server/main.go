package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/groupsplit/internal/auth"
	"github.com/mmynk/groupsplit/internal/backend"
	"github.com/mmynk/groupsplit/internal/config"
	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/middleware"
	"github.com/mmynk/groupsplit/internal/service"
	"github.com/mmynk/groupsplit/internal/settlement"
	"github.com/mmynk/groupsplit/internal/storage/sqlite"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
	"github.com/mmynk/groupsplit/pkg/logging"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Minute
	limiterIdle     = 10 * time.Minute
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)
	cfg.ApplyCurrencies()

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	m := metrics.New()
	client := backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithGroupCacheTTL(cfg.GroupCacheTTL),
		backend.WithMetrics(m),
		backend.WithDefaultCurrency(cfg.DefaultCurrency),
	)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret)

	public := connect.WithInterceptors(middleware.LoggingInterceptor(m))
	authed := connect.WithInterceptors(middleware.LoggingInterceptor(m), middleware.RequireAuth(jwtManager))

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewSplitServiceHandler(service.NewSplitService(m, cfg.DefaultCurrency), public))
	mux.Handle(apiconnect.NewExpenseServiceHandler(
		service.NewExpenseService(client, store, m, cfg.DefaultCurrency), authed))
	mux.Handle(apiconnect.NewSettlementServiceHandler(
		service.NewSettlementService(settlement.NewView(client, store), client, cfg.DefaultCurrency), authed))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := middleware.RequestLogger(middleware.CORS(limiter.Middleware(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr: addr,
		// h2c serves HTTP/2 without TLS for Connect and gRPC clients.
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Prune(limiterIdle)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", addr, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
