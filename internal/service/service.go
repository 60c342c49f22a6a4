package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/cache"
	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
)

const (
	cacheCurrent  = "current"
	cacheForecast = "forecast"
)

// Options configures a WeatherService.
type Options struct {
	CacheTTL        time.Duration
	CacheMaxEntries int
	CoalesceEnabled bool
	CoalesceTimeout time.Duration
	Now             func() time.Time
}

// WeatherService serves current weather and forecasts from per-city caches, fetching
// upstream only when the cached entry is missing or older than the TTL.
type WeatherService struct {
	client          client.WeatherClient
	current         *cache.TTLCache[models.WeatherSnapshot]
	forecast        *cache.TTLCache[models.ForecastSnapshot]
	currentFlight   *requestCoalescer[models.WeatherSnapshot]
	forecastFlight  *requestCoalescer[models.ForecastSnapshot]
	stampedeTracker *stampedeTracker
}

// NewWeatherService creates a WeatherService. A zero CacheTTL uses 10 minutes.
func NewWeatherService(c client.WeatherClient, opts Options) *WeatherService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	s := &WeatherService{
		client:          c,
		current:         cache.NewTTLCache[models.WeatherSnapshot](opts.CacheTTL, opts.CacheMaxEntries, opts.Now),
		forecast:        cache.NewTTLCache[models.ForecastSnapshot](opts.CacheTTL, opts.CacheMaxEntries, opts.Now),
		stampedeTracker: newStampedeTracker(),
	}
	if opts.CoalesceEnabled {
		s.currentFlight = newRequestCoalescer[models.WeatherSnapshot](opts.CoalesceTimeout)
		s.forecastFlight = newRequestCoalescer[models.ForecastSnapshot](opts.CoalesceTimeout)
	}
	return s
}

// GetCurrentWeather returns current conditions for city. The cache key is city exactly as given.
func (s *WeatherService) GetCurrentWeather(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	return cachedFetch(ctx, cacheCurrent, s.current, s.currentFlight, s.stampedeTracker, city, s.client.GetCurrentWeather)
}

// GetForecast returns the 5 day / 3 hour forecast for city.
func (s *WeatherService) GetForecast(ctx context.Context, city string) (models.ForecastSnapshot, error) {
	return cachedFetch(ctx, cacheForecast, s.forecast, s.forecastFlight, s.stampedeTracker, city, s.client.GetForecast)
}

// GetWeatherByCoords looks up weather for a coordinate pair. Coordinate lookups are not cached.
func (s *WeatherService) GetWeatherByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	snap, err := s.client.GetWeatherByCoords(ctx, lat, lon)
	if err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("fetch weather for %v,%v: %w", lat, lon, err)
	}
	return snap, nil
}

// ValidateAPIKey checks the provider credentials.
func (s *WeatherService) ValidateAPIKey(ctx context.Context) error {
	return s.client.ValidateAPIKey(ctx)
}

// CacheSizes reports stored entry counts for the current and forecast caches.
func (s *WeatherService) CacheSizes() (current, forecast int) {
	return s.current.Len(), s.forecast.Len()
}

// cachedFetch is the cache-aside read shared by both caches. A failed fetch leaves the
// previous entry, fresh or stale, untouched.
func cachedFetch[V any](
	ctx context.Context,
	name string,
	c *cache.TTLCache[V],
	flight *requestCoalescer[V],
	st *stampedeTracker,
	key string,
	fetch func(context.Context, string) (V, error),
) (V, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)

	if v, ok := c.Get(key); ok {
		observability.RecordCacheLookup(name, true)
		logger.Debug("cache hit", zap.String("cache", name), zap.String("city", key))
		return v, nil
	}
	observability.RecordCacheLookup(name, false)

	stampedeKey := name + ":" + key
	if concurrent := st.RecordMiss(stampedeKey); concurrent > 1 {
		logger.Debug("concurrent cache misses", zap.String("cache", name), zap.String("city", key), zap.Int("concurrent", concurrent))
	}
	defer st.Resolve(stampedeKey)

	logger.Debug("cache miss, fetching upstream", zap.String("cache", name), zap.String("city", key))

	var (
		v   V
		err error
	)
	if flight != nil {
		// The shared fetch outlives any single caller so late joiners still get a result.
		fetchCtx := context.WithoutCancel(ctx)
		var shared bool
		v, shared, err = flight.GetOrDo(ctx, key, func() (V, error) {
			fv, ferr := fetch(fetchCtx, key)
			if ferr == nil {
				c.Set(key, fv)
			}
			return fv, ferr
		})
		if shared {
			observability.CoalescedRequestsTotal.WithLabelValues(name).Inc()
		}
	} else {
		v, err = fetch(ctx, key)
		if err == nil {
			c.Set(key, v)
		}
	}
	if err != nil {
		var zero V
		return zero, fmt.Errorf("fetch %s for %s: %w", name, key, err)
	}

	logger.Debug("weather served", zap.String("cache", name), zap.String("city", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return v, nil
}
