package main

import (
	"context"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	adaptermiddleware "sponsor-portal/internal/adapters/http/middleware"
	adapterlogger "sponsor-portal/internal/adapters/logger"
	"sponsor-portal/internal/application"
	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/infrastructure/auth"
	"sponsor-portal/internal/infrastructure/backend"
	"sponsor-portal/internal/infrastructure/dynamodb"
	"sponsor-portal/internal/infrastructure/memory"
	httpiface "sponsor-portal/internal/interfaces/http"
	"sponsor-portal/internal/platform/config"
	"sponsor-portal/internal/platform/ids"
	"sponsor-portal/internal/platform/lambda"
	"sponsor-portal/internal/ports"
)

func main() {
	bootLogger := adapterlogger.New(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error(context.Background(), "configuration error", "error", err)
		os.Exit(1)
	}
	if err := domain.ValidateRouteTables(); err != nil {
		bootLogger.Error(context.Background(), "route tables inconsistent", "error", err)
		os.Exit(1)
	}
	logger := adapterlogger.New(cfg.LogLevel)
	xray.Configure(xray.Config{LogLevel: "error"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newCredentialStore(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "failed to initialize credential store", "error", err, "store_mode", cfg.StoreMode)
		os.Exit(1)
	}
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)

	registry := application.NewSessionRegistry(store, client, logger, cfg.SessionIdleTimeout)
	signer, err := auth.NewCookieSigner(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	if err != nil {
		logger.Error(ctx, "failed to initialize session cookies", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := adaptermiddleware.NewMetrics(reg)
	limiter := adaptermiddleware.NewLoginLimiter(cfg.LoginRatePerMinute)
	limiter.OnThrottle(func() { metrics.ObserveLogin("throttled") })

	handlers := httpiface.NewHandlers(
		application.NewComplianceService(client, time.Now),
		application.NewCalendarService(client, time.Now),
		logger,
		metrics,
	)
	e := httpiface.NewRouter(handlers, httpiface.Middleware{
		XRay:           adaptermiddleware.XRayMiddleware("sponsor-portal"),
		RequestLogger:  adaptermiddleware.RequestLogger(logger),
		Metrics:        metrics.Middleware(),
		Session:        adaptermiddleware.Session(signer, registry, logger),
		RouteGuard:     adaptermiddleware.RouteGuard(logger, metrics),
		LoginLimit:     limiter.Middleware(logger),
		MetricsHandler: metrics.Handler(),
		RequestID:      ids.New,
	})

	go registry.Run(ctx, time.Minute)
	go sweepLimiter(ctx, limiter, 10*time.Minute)

	if lambda.InLambda() {
		logger.Info(ctx, "starting lambda handler", "store_mode", cfg.StoreMode)
		awslambda.StartWithOptions(lambda.NewLambdaHandler(e), awslambda.WithContext(ctx))
		return
	}

	go func() {
		logger.Info(ctx, "starting http server", "port", cfg.Port, "store_mode", cfg.StoreMode)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "graceful shutdown failed", "error", err)
	}
	logger.Info(shutdownCtx, "http server stopped")
}

func newCredentialStore(ctx context.Context, cfg config.Config) (ports.CredentialStore, error) {
	switch cfg.StoreMode {
	case config.StoreMemory:
		return memory.NewCredentialStore(), nil
	case config.StoreDynamoDB:
		client, err := dynamodb.NewClient(ctx, cfg.Region, cfg.TableName)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewCredentialRepository(client, cfg.SessionTTL), nil
	default:
		return nil, errors.New("unsupported store mode")
	}
}

func sweepLimiter(ctx context.Context, limiter *adaptermiddleware.LoginLimiter, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep(ttl)
		}
	}
}
