package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

const rateLimitCleanup = time.Minute

type app struct {
	handler   http.Handler
	dashboard *services.Dashboard
	store     *session.Store
	limiter   *middleware.RateLimiter
}

// newApp builds the dashboard service and the HTTP handler with its
// middleware chain.
func newApp(cfg *config.Config, logger *slog.Logger, tel *observability.Telemetry) (*app, error) {
	store := session.NewStore(cfg.Session, logger)
	dashboard, err := services.NewDashboard(store, tel.Tracer, tel.Meter, logger, cfg.Report.TopProducts)
	if err != nil {
		return nil, err
	}

	srv := server.NewServer(dashboard, cfg, logger, tel.MetricsHandler())

	metrics, err := middleware.Metrics(tel.Meter)
	if err != nil {
		return nil, err
	}
	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.BodyLimit(cfg.Upload.MaxBytes<<1, logger),
		middleware.Tracing(tel.Tracer),
		metrics,
	)

	return &app{
		handler:   middlewareChain(srv),
		dashboard: dashboard,
		store:     store,
		limiter:   rateLimiter,
	}, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", observability.ServiceVersion,
		"addr", cfg.Address(),
		"currency", cfg.Report.Currency,
		"max_upload_bytes", cfg.Upload.MaxBytes,
	)

	tel, err := observability.NewTelemetry(cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}
	tel.SetGlobal()

	a, err := newApp(cfg, logger, tel)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	janitorCtx, stopJanitors := context.WithCancel(context.Background())
	go a.store.Start(janitorCtx)
	go a.limiter.Start(janitorCtx, rateLimitCleanup)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("stopping session janitor", "sessions", a.store.Len())
		stopJanitors()
		return nil
	})
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("flushing telemetry")
		return tel.Shutdown(ctx)
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
