package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/gearstage-backend/internal/calendar"
	"github.com/angelmondragon/gearstage-backend/internal/cron"
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

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobName := flag.String("job", "", "run only the named job once and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	mirror, err := calendar.FromConfig(context.Background(), cfg.Calendar,
		metrics.NewMirrorMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create calendar mirror", err)
		os.Exit(1)
	}

	catalog := equipment.NewRepository(dbClient.DB())
	ledger, err := inventory.NewLedger(catalog, metrics.NewLedgerMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory ledger", err)
		os.Exit(1)
	}
	siteService, err := sites.NewService(sites.NewRepository(dbClient.DB()), catalog, ledger, mirror, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create site service", err)
		os.Exit(1)
	}

	resyncJob, err := cron.NewCalendarResyncJob(cron.CalendarResyncJobParams{
		Logger:    logg,
		Sites:     siteService,
		BatchSize: cfg.Cron.ResyncBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create calendar resync job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(resyncJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
	})

	if *jobName != "" {
		ctx = logg.WithField(ctx, "job", *jobName)
		logg.Info(ctx, "running single cron job")
		if err := service.RunJob(ctx, *jobName); err != nil {
			logg.Error(ctx, "cron job failed", err)
			os.Exit(1)
		}
		return
	}

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(client *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return client.LockKey("cron-worker:" + env)
}
