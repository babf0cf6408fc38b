package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/gearstage-backend/api/routes"
	"github.com/angelmondragon/gearstage-backend/internal/allocation"
	"github.com/angelmondragon/gearstage-backend/internal/calendar"
	"github.com/angelmondragon/gearstage-backend/internal/categories"
	"github.com/angelmondragon/gearstage-backend/internal/equipment"
	"github.com/angelmondragon/gearstage-backend/internal/inventory"
	"github.com/angelmondragon/gearstage-backend/internal/sites"
	"github.com/angelmondragon/gearstage-backend/pkg/config"
	"github.com/angelmondragon/gearstage-backend/pkg/db"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/angelmondragon/gearstage-backend/pkg/metrics"
	"github.com/angelmondragon/gearstage-backend/pkg/migrate"
	"github.com/angelmondragon/gearstage-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.DefaultRegisterer

	mirror, err := calendar.FromConfig(context.Background(), cfg.Calendar, metrics.NewMirrorMetrics(reg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create calendar mirror", err)
		os.Exit(1)
	}

	catalog := equipment.NewRepository(dbClient.DB())
	equipmentService, err := equipment.NewService(catalog, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create equipment service", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(categories.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}

	ledger, err := inventory.NewLedger(catalog, metrics.NewLedgerMetrics(reg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory ledger", err)
		os.Exit(1)
	}

	siteRepo := sites.NewRepository(dbClient.DB())
	siteService, err := sites.NewService(siteRepo, catalog, ledger, mirror, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create site service", err)
		os.Exit(1)
	}

	builder, err := allocation.NewBuilder(catalog)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation builder", err)
		os.Exit(1)
	}
	previewer, err := allocation.NewPreviewer(builder, siteRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation previewer", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"calendar": cfg.Calendar.Enabled,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, metrics.NewHTTPMetrics(reg), prometheus.DefaultGatherer, routes.Services{
			Equipment:  equipmentService,
			Categories: categoryService,
			Previewer:  previewer,
			Sites:      siteService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}
