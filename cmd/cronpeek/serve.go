package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/djlord-it/cronpeek/internal/analytics"
	"github.com/djlord-it/cronpeek/internal/api"
	"github.com/djlord-it/cronpeek/internal/circuitbreaker"
	"github.com/djlord-it/cronpeek/internal/config"
	"github.com/djlord-it/cronpeek/internal/domain"
	"github.com/djlord-it/cronpeek/internal/logging"
	"github.com/djlord-it/cronpeek/internal/metrics"
	"github.com/djlord-it/cronpeek/internal/preview"
	"github.com/djlord-it/cronpeek/internal/store/postgres"
	"github.com/djlord-it/cronpeek/internal/transport/channel"
)

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	logger := logging.Component("cronpeek")
	logConfigWarnings(&cfg, logger)

	var metricsSink metrics.Sink = metrics.NewNoopSink()
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		logger.Info().Str("port", cfg.MetricsPort).Str("path", cfg.MetricsPath).Msg("metrics enabled")

		// Metrics are served on their own port.
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	svc := preview.NewService(preview.Config{
		DefaultTimezone: cfg.DefaultTimezone,
		DefaultCount:    cfg.DefaultRunCount,
		MaxCount:        cfg.MaxRunCount,
		SearchTimeout:   cfg.SearchTimeout,
	}).WithMetrics(metricsSink)

	handler := api.NewHandler(svc).
		WithMetrics(metricsSink).
		WithRateLimit(cfg.PreviewRateLimit, cfg.PreviewRateBurst)

	var analyticsWg sync.WaitGroup
	analyticsCtx, cancelAnalytics := context.WithCancel(context.Background())
	defer cancelAnalytics()

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer redisClient.Close()

		sink := analytics.NewRedisSink(redisClient, domain.AnalyticsConfig{
			Window:    cfg.AnalyticsWindow,
			Retention: cfg.AnalyticsRetention,
		}).WithCircuitBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown))

		// Previews enqueue; a single writer owns the redis round trips.
		bus := channel.NewEventBus(cfg.AnalyticsBuffer, channel.WithMetrics(metricsSink))
		writer := analytics.NewWriter(sink).WithMetrics(metricsSink)

		analyticsWg.Add(1)
		go func() {
			defer analyticsWg.Done()
			writer.Run(analyticsCtx, bus.Channel())
		}()

		svc.WithAnalytics(bus)
		handler = handler.WithAnalyticsChecker(sink)
		logger.Info().
			Str("redis", cfg.RedisAddr).
			Dur("window", cfg.AnalyticsWindow).
			Int("buffer", cfg.AnalyticsBuffer).
			Msg("analytics enabled")
	} else {
		logger.Info().Msg("REDIS_ADDR not set; analytics disabled")
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
			return exitRuntimeError
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

		logger.Info().
			Int("max_open", cfg.DBMaxOpenConns).
			Int("max_idle", cfg.DBMaxIdleConns).
			Dur("max_lifetime", cfg.DBConnMaxLifetime).
			Dur("max_idle_time", cfg.DBConnMaxIdleTime).
			Msg("db pool configured")

		if err := db.Ping(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
			return exitRuntimeError
		}

		store := postgres.New(db, cfg.DBOpTimeout)
		if err := store.Migrate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to migrate database: %v\n", err)
			return exitRuntimeError
		}
		if n, err := store.CountSchedules(context.Background()); err == nil {
			metricsSink.SchedulesStored(n)
		}

		handler = handler.WithStore(store).WithHealthChecker(db)
		logger.Info().Msg("saved schedules enabled")
	} else {
		logger.Info().Msg("DATABASE_URL not set; saved schedules disabled")
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	logger.Info().
		Str("version", version).
		Str("default_timezone", cfg.DefaultTimezone).
		Dur("search_timeout", cfg.SearchTimeout).
		Msg("started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	logger.Info().Str("signal", received.String()).Msg("shutting down")

	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	logger.Info().Msg("http server stopped")

	// No request can enqueue now, so the writer drains a closed set.
	cancelAnalytics()
	analyticsWg.Wait()

	if metricsServer != nil {
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
		logger.Info().Msg("metrics server stopped")
	}

	logger.Info().Msg("stopped")
	return exitSuccess
}

// logConfigWarnings reports settings that are valid but likely unintended.
func logConfigWarnings(cfg *config.Config, logger zerolog.Logger) {
	if cfg.PreviewRateLimit == 0 {
		logger.Warn().Msg("PREVIEW_RATE_LIMIT=0: preview endpoints are not rate limited")
	}
	if cfg.RedisAddr != "" && cfg.CircuitBreakerThreshold == 0 {
		logger.Warn().Msg("CIRCUIT_BREAKER_THRESHOLD=0: every preview waits on redis even while it is down")
	}
	if cfg.MaxRunCount > 500 {
		logger.Warn().Int("max_run_count", cfg.MaxRunCount).
			Msg("large MAX_RUN_COUNT: sparse expressions may hit SEARCH_TIMEOUT")
	}
	if !cfg.MetricsEnabled {
		logger.Info().Msg("METRICS_ENABLED=false: search latency and analytics failures are not exported")
	}
}
