package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/barterhub/barterhub/internal/api/http"
	"github.com/barterhub/barterhub/internal/application/auth"
	"github.com/barterhub/barterhub/internal/application/notification"
	"github.com/barterhub/barterhub/internal/application/trade"
	"github.com/barterhub/barterhub/internal/config"
	"github.com/barterhub/barterhub/internal/domain/catalog"
	domainNotification "github.com/barterhub/barterhub/internal/domain/notification"
	"github.com/barterhub/barterhub/internal/domain/session"
	domainTrade "github.com/barterhub/barterhub/internal/domain/trade"
	"github.com/barterhub/barterhub/internal/infrastructure/memory"
	"github.com/barterhub/barterhub/internal/infrastructure/metrics"
	"github.com/barterhub/barterhub/internal/infrastructure/natsbus"
	"github.com/barterhub/barterhub/internal/infrastructure/postgres"
	"github.com/barterhub/barterhub/internal/infrastructure/sse"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	ctx := context.Background()

	// repositories
	var (
		tradeRepo   domainTrade.Repository
		products    catalog.Catalog
		sessionRepo session.Repository
	)
	switch cfg.TradeStore {
	case config.StoreMemory:
		seeded := memory.NewCatalog()
		if cfg.CatalogSeedFile != "" {
			if seeded, err = memory.LoadCatalog(cfg.CatalogSeedFile); err != nil {
				logger.Fatal().Err(err).Msg("catalog seed error")
			}
		}
		tradeRepo = memory.NewTradeStore()
		products = seeded
		sessionRepo = memory.NewSessionStore()
		logger.Warn().Msg("using in-memory stores; state is lost on restart")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("db error")
		}
		defer pool.Close()

		applied, err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration error")
		}
		for _, name := range applied {
			logger.Info().Str("migration", name).Msg("migration applied")
		}
		tradeRepo = postgres.NewTradeRepository(pool)
		products = postgres.NewCatalogRepository(pool)
		sessionRepo = postgres.NewSessionRepository(pool)
	}

	// infrastructure
	sseHub := sse.NewHub()

	var publisher domainNotification.Publisher
	if cfg.NATSURL != "" {
		bus, err := natsbus.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			logger.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("nats error")
		}
		defer func() { _ = bus.Close() }()
		publisher = bus
		logger.Info().Str("url", cfg.NATSURL).Str("prefix", cfg.NATSSubjectPrefix).Msg("publishing trade events to nats")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tradeMetrics := metrics.NewTradeMetrics(registry)

	// services
	notificationSvc := notification.NewService(sseHub, publisher, logger)
	tradeSvc := trade.NewService(tradeRepo, products, notificationSvc, tradeMetrics, trade.Config{
		AutoLockOnAccept: cfg.AutoLockOnAccept,
	}, logger)
	authSvc := auth.NewService(sessionRepo, cfg.SessionTTL, logger)

	// API server
	apiServer := httpapi.NewServer(tradeSvc, authSvc, sseHub, httpapi.Options{
		SessionCookieName:   cfg.SessionCookieName,
		SessionCookieSecure: cfg.SessionCookieSecure,
		IssuerKey:           cfg.AuthIssuerKey,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, logger)

	// WriteTimeout stays unset: /v1/stream holds the response open.
	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// background loops
	loopCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()
	go func() {
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := authSvc.SweepExpired(loopCtx); err != nil {
					logger.Warn().Err(err).Msg("session sweep failed")
				}
			case <-loopCtx.Done():
				return
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Str("store", cfg.TradeStore).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")
	stopLoops()
	// Streams only end when their clients go away; closing the hub releases them.
	sseHub.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
}
