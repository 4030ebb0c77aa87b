package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	apphttp "github.com/yungbote/toktik-backend/internal/http"
	"github.com/yungbote/toktik-backend/internal/observability"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  *Clients
	Services Services
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewWithOptions(logger.Options{
		Mode:     cfg.Log.Mode,
		Level:    cfg.Log.Level,
		Redact:   cfg.Log.RedactionEnabled,
		HashSalt: cfg.Log.HashSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     observability.ParseHeaders(cfg.Otel.Headers),
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(log, cfg, clients)
	if err != nil {
		_ = clients.Close()
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, err
	}

	server := apphttp.NewServer(cfg.Address(), wireRouterConfig(log, cfg, serviceset))

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Services:     serviceset,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Start loads the embedding model in the background. A failed load is
// logged and retried by the first request that needs it.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.Services.Embedder == nil {
		return
	}
	go func() {
		if err := a.Services.Embedder.Initialize(ctx); err != nil {
			a.Log.Warn("Embedding model preload failed", "error", err)
		}
	}()
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Server.Addr())
	return a.Server.Run()
}

// Shutdown drains HTTP first, then releases clients and flushes traces
// concurrently.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	defer a.Log.Sync()

	serverErr := a.Server.Shutdown(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Clients.Close() })
	if a.otelShutdown != nil {
		g.Go(func() error { return a.otelShutdown(gctx) })
	}
	if err := g.Wait(); err != nil {
		a.Log.Warn("Shutdown incomplete", "error", err)
		return err
	}
	if serverErr != nil {
		return fmt.Errorf("http shutdown: %w", serverErr)
	}
	a.Log.Info("Shutdown complete")
	return nil
}
