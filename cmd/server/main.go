package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"barberdesk/internal/api"
	"barberdesk/internal/audit"
	"barberdesk/internal/booking"
	"barberdesk/internal/config"
	"barberdesk/internal/database"
	"barberdesk/internal/events"
	"barberdesk/internal/metrics"
	"barberdesk/internal/schedule"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Optional .env for local development; config placeholders expand
	// from the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("BARBERDESK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}
	hours, err := cfg.BusinessHours()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid business hours")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	clock := schedule.SystemClock{Location: loc}
	bus := events.NewEventBus()
	subscribeAuditLog(bus, &logger)

	catalog := booking.NewCatalog(db, 5*time.Minute)
	validator := schedule.NewValidator(hours, clock)
	detector := booking.NewDuplicateDetector(db, rdb, cfg.DuplicateWindow(), clock, &logger)
	registry := booking.NewBlackoutRegistry(db, bus, &logger)
	checker := booking.NewAvailabilityChecker(db, registry, cfg.Shop.BarberChairs)
	sweeper := booking.NewArchivalSweeper(db, clock, bus, &logger)
	reporter := audit.NewReporter(db, &logger)
	svc := booking.NewService(db, catalog, validator, detector, checker, bus, cfg.Shop.BarberChairs, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go sweeper.Run(ctx, cfg.SweepInterval())

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup.StoragePath,
			cfg.BackupInterval(), cfg.Backup.RetentionDays, &logger)
		go backups.Run(ctx)
	}

	server := api.NewHTTPServer(api.ServerConfig{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		AdminAPIKey:    cfg.Server.AdminAPIKey,
		RateLimitRPS:   cfg.Server.RateLimit,
		RateLimitBurst: cfg.Server.RateBurst,
	}, api.Deps{
		Bookings:  svc,
		Validator: validator,
		Detector:  detector,
		Checker:   checker,
		Blackouts: registry,
		Sweeper:   sweeper,
		Catalog:   catalog,
		Reporter:  reporter,
		Listings:  db,
		Hours:     hours,
	}, &logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Msg("barberdesk started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("barberdesk stopped")
}

// subscribeAuditLog writes every domain event to the structured log.
func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	log := func(event events.Event) error {
		logger.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Time("at", event.CreatedAt).
			Msg("domain event")
		return nil
	}
	for _, t := range []string{
		events.TypeBookingCreated,
		events.TypeBookingStatusChanged,
		events.TypeBlackoutAdded,
		events.TypeBlackoutRemoved,
		events.TypeSweepCompleted,
	} {
		bus.Subscribe(t, log)
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
