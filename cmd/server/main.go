// @title LRS Dashboard API
// @version 1.0
// @description Statement statistics for learning record stores
// @contact.name API Support
// @contact.email support@example.com
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

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

	"lrs-tracker/config"
	"lrs-tracker/internal/dashboard"
	"lrs-tracker/internal/database"
	"lrs-tracker/internal/handlers"
	"lrs-tracker/internal/middleware"
	"lrs-tracker/internal/observability"
	"lrs-tracker/internal/repository"
	"lrs-tracker/internal/services"

	"github.com/gin-gonic/gin"

	_ "lrs-tracker/docs"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// backend is the statement store selected by configuration.
type backend struct {
	name       string
	statements interface {
		dashboard.Aggregator
		dashboard.Scanner
	}
	stores  repository.StoreReader
	clients repository.ClientStore
	ping    handlers.Pinger
	close   func() error
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StatementBackend {
	case config.BackendMongo:
		mongodb, err := database.NewMongoDB(cfg.MongoDBURI, cfg.MongoDBDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		if err := mongodb.EnsureIndexes(ctx); err != nil {
			slog.Warn("failed to ensure indexes", "error", err)
		}
		return &backend{
			name:       "MongoDB",
			statements: repository.NewStatementRepository(mongodb.Database),
			stores:     repository.NewStoreRepository(mongodb.Database),
			clients:    repository.NewClientRepository(mongodb.Database),
			ping:       mongodb.Ping,
			close:      mongodb.Disconnect,
		}, nil

	case config.BackendSQLite:
		db, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open SQLite: %w", err)
		}
		return &backend{
			name:       "SQLite",
			statements: repository.NewSQLStatementRepository(db.DB),
			stores:     repository.NewSQLStoreRepository(db.DB),
			clients:    repository.NewSQLClientRepository(db.DB),
			ping:       db.PingContext,
			close:      db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown STATEMENT_BACKEND %q", cfg.StatementBackend)
}

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()

	providers, err := observability.Init(observability.Config{
		ServiceName:    "lrs-tracker",
		ServiceVersion: version,
		Environment:    cfg.ServiceEnv,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   cfg.OTLPInsecure,
		LogLevel:       cfg.LogLevel,
		LogFormat:      cfg.LogFormat,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	slog.SetDefault(providers.Logger)
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}
	gauge, err := observability.NewStatementGauge(providers.Meter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			slog.Error("failed to close statement store", "error", err)
		}
	}()

	var agg dashboard.Aggregator = store.statements
	if cfg.AggregationMode == config.AggregationScan {
		agg = dashboard.InProcess(store.statements)
	}

	svc := dashboard.NewService(agg,
		dashboard.WithLogger(providers.Logger),
		dashboard.WithTracer(providers.Tracer),
		dashboard.WithMetrics(red),
	)

	if _, err := services.EnsureBootstrapClient(ctx, store.clients, cfg.BootstrapClientID, cfg.BootstrapClientSecret); err != nil {
		return err
	}

	reporterDone := services.StartStatsReporter(ctx, cfg.StatsReportInterval, svc, store.stores, gauge)

	// Initialize Gin
	if cfg.ServiceEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Telemetry(providers.Tracer, red))
	r.Use(middleware.CORS(cfg))

	handlers.Routes{
		Config:    cfg,
		Stores:    store.stores,
		Health:    handlers.NewHealthHandler(store.name, store.ping),
		Auth:      handlers.NewAuthHandler(cfg, store.clients),
		Dashboard: handlers.NewDashboardHandler(svc, cfg),
		Store:     handlers.NewStoreHandler(store.stores),
	}.Register(r)

	r.GET("/metrics", gin.WrapH(providers.MetricsHandler))
	// Swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "backend", store.name, "aggregation", cfg.AggregationMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-reporterDone
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-reporterDone
	return nil
}
