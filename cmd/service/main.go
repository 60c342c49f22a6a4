package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-lookup-service/internal/account"
	"github.com/kjstillabower/weather-lookup-service/internal/cache"
	"github.com/kjstillabower/weather-lookup-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/config"
	"github.com/kjstillabower/weather-lookup-service/internal/history"
	httphandler "github.com/kjstillabower/weather-lookup-service/internal/http"
	"github.com/kjstillabower/weather-lookup-service/internal/kvstore"
	"github.com/kjstillabower/weather-lookup-service/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
	"github.com/kjstillabower/weather-lookup-service/internal/preferences"
	"github.com/kjstillabower/weather-lookup-service/internal/service"
	"github.com/kjstillabower/weather-lookup-service/internal/session"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}
	if err := a.run(ctx); err != nil {
		logger.Error("server", zap.Error(err))
	}
	a.shutdown()
}

// app is the wired service: storage, weather pipeline and HTTP server.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   kvstore.Backend
	weather *service.WeatherService
	warmer  *cache.CacheWarmer
	server  *http.Server
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := kvstore.Open(ctx, kvstore.Options{
		Backend:               cfg.StorageBackend,
		MemcachedAddrs:        cfg.MemcachedAddrs,
		MemcachedTimeout:      cfg.MemcachedTimeout,
		MemcachedMaxIdleConns: cfg.MemcachedMaxIdleConns,
		Redis: kvstore.RedisConfig{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  cfg.RedisTimeout,
			ReadTimeout:  cfg.RedisTimeout,
			WriteTimeout: cfg.RedisTimeout,
		},
		DSN: cfg.DatabaseDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	store = kvstore.Instrument(store, logger)
	logger.Info("storage backend", zap.String("backend", cfg.StorageBackend))

	weatherClient, err := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("weather client: %w", err)
	}

	health := &httphandler.HealthConfig{
		ErrorWindow: cfg.HealthErrorWindow,
		ErrorPct:    cfg.HealthErrorPct,
		StorePing:   store.Ping,
		Version:     version,
	}
	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			IsFailure:        countsAgainstCircuit,
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state change", zap.Stringer("from", from), zap.Stringer("to", to))
				observability.CircuitBreakerState.Set(float64(to))
			},
		})
		weatherClient.SetCircuitBreaker(cb)
		health.CircuitState = cb.State
		observability.CircuitBreakerState.Set(float64(circuitbreaker.StateClosed))
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	weatherService := service.NewWeatherService(weatherClient, service.Options{
		CacheTTL:        cfg.CacheTTL,
		CacheMaxEntries: cfg.CacheMaxEntries,
		CoalesceEnabled: cfg.CoalesceEnabled,
		CoalesceTimeout: cfg.CoalesceTimeout,
	})

	accounts := account.NewStore(store, cfg.AdminEmails)
	handler := httphandler.NewHandler(httphandler.Deps{
		Weather:       weatherService,
		Accounts:      accounts,
		Sessions:      session.NewTracker(store, accounts),
		Preferences:   preferences.NewStore(accounts),
		History:       history.NewTracker(store, cfg.HistoryMaxEntries),
		Health:        health,
		Logger:        logger,
		CityMinLength: cfg.CityMinLength,
		CityMaxLength: cfg.CityMaxLength,
	})

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		Logger:         logger,
	})

	if len(cfg.TrackedLocations) > 0 {
		observability.SetTrackedLocations(cfg.TrackedLocations)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		weather: weatherService,
		warmer:  cache.NewCacheWarmer(weatherService, logger),
		server: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		},
	}, nil
}

// countsAgainstCircuit keeps caller mistakes (unknown city, bad coordinates) and a
// rejected key from tripping the breaker; only upstream availability failures count.
func countsAgainstCircuit(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, client.ErrCityNotFound), errors.Is(err, client.ErrInvalidAPIKey),
		errors.Is(err, client.ErrLocationUnavailable), errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// startWarming fills the cache for the configured cities and keeps it warm. Health
// reports "warming" until the first pass finishes.
func (a *app) startWarming(ctx context.Context) {
	cities := a.cfg.WarmCities
	if len(cities) == 0 {
		return
	}
	lifecycle.SetWarming(true)
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := a.warmer.Warm(warmCtx, cities); err != nil {
			a.logger.Warn("cache warming failed", zap.Error(err))
		}
		cancel()
		lifecycle.SetWarming(false)

		if a.cfg.WarmInterval <= 0 {
			return
		}
		if err := a.warmer.WarmPeriodic(ctx, cities, a.cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("periodic cache warming stopped", zap.Error(err))
		}
	}()
}

// run serves until ctx is cancelled, then drains in-flight requests.
func (a *app) run(ctx context.Context) error {
	a.startWarming(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown", zap.Error(err))
	}
	a.logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, 50*time.Millisecond); err != nil {
		a.logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}
	return nil
}

// shutdown releases the storage backend and flushes logs.
func (a *app) shutdown() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("storage close", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	if err := observability.Flush(a.logger); err != nil {
		fmt.Fprintf(os.Stderr, "flush: %v\n", err)
	}
}
