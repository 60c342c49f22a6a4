package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

type mockWeatherClient struct {
	mu            sync.Mutex
	currentCalls  int32
	forecastCalls int32
	temperature   float64
	err           error
	delay         time.Duration
	validateErr   error
}

func (m *mockWeatherClient) GetCurrentWeather(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	atomic.AddInt32(&m.currentCalls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.WeatherSnapshot{}, m.err
	}
	return models.WeatherSnapshot{City: city, Temperature: m.temperature}, nil
}

func (m *mockWeatherClient) GetForecast(ctx context.Context, city string) (models.ForecastSnapshot, error) {
	atomic.AddInt32(&m.forecastCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.ForecastSnapshot{}, m.err
	}
	return models.ForecastSnapshot{City: city, Intervals: []models.ForecastInterval{{Temperature: m.temperature}}}, nil
}

func (m *mockWeatherClient) GetWeatherByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	if lat > 90 {
		return models.WeatherSnapshot{}, client.ErrLocationUnavailable
	}
	return models.WeatherSnapshot{City: "Coordsville", Latitude: lat, Longitude: lon}, nil
}

func (m *mockWeatherClient) ValidateAPIKey(ctx context.Context) error {
	return m.validateErr
}

func (m *mockWeatherClient) set(temp float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temperature, m.err = temp, err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestService(m *mockWeatherClient, coalesce bool) (*WeatherService, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewWeatherService(m, Options{
		CacheTTL:        10 * time.Minute,
		CoalesceEnabled: coalesce,
		CoalesceTimeout: time.Second,
		Now:             clk.Now,
	})
	return svc, clk
}

func TestWeatherService_FreshEntryServedWithoutNetwork(t *testing.T) {
	m := &mockWeatherClient{temperature: 18}
	svc, clk := newTestService(m, true)
	ctx := context.Background()

	if _, err := svc.GetCurrentWeather(ctx, "Paris"); err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	clk.Advance(9 * time.Minute)
	got, err := svc.GetCurrentWeather(ctx, "Paris")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if got.Temperature != 18 {
		t.Errorf("Temperature = %v, want 18", got.Temperature)
	}
	if n := atomic.LoadInt32(&m.currentCalls); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestWeatherService_StaleEntryRefetchedOnce(t *testing.T) {
	m := &mockWeatherClient{temperature: 18}
	svc, clk := newTestService(m, true)
	ctx := context.Background()

	_, _ = svc.GetCurrentWeather(ctx, "Paris")
	clk.Advance(11 * time.Minute)
	m.set(21, nil)

	got, err := svc.GetCurrentWeather(ctx, "Paris")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if got.Temperature != 21 {
		t.Errorf("Temperature = %v, want refreshed 21", got.Temperature)
	}
	_, _ = svc.GetCurrentWeather(ctx, "Paris")
	if n := atomic.LoadInt32(&m.currentCalls); n != 2 {
		t.Errorf("upstream calls = %d, want 2 (one initial, one refresh)", n)
	}
}

func TestWeatherService_FailedFetchKeepsPreviousEntry(t *testing.T) {
	m := &mockWeatherClient{temperature: 18}
	svc, clk := newTestService(m, false)
	ctx := context.Background()

	_, _ = svc.GetCurrentWeather(ctx, "Paris")
	clk.Advance(11 * time.Minute)
	m.set(0, client.ErrUpstreamFailure)

	_, err := svc.GetCurrentWeather(ctx, "Paris")
	if !errors.Is(err, client.ErrFetchFailed) {
		t.Fatalf("GetCurrentWeather() error = %v, want ErrFetchFailed", err)
	}

	// The stale entry keeps its original fetch time.
	if age, ok := svc.current.Age("Paris"); !ok || age != 11*time.Minute {
		t.Errorf("Age(Paris) = %v, %v; want 11m, true", age, ok)
	}
	if n, _ := svc.CacheSizes(); n != 1 {
		t.Errorf("current cache size = %d, want 1", n)
	}
}

func TestWeatherService_CityNotFoundPropagates(t *testing.T) {
	m := &mockWeatherClient{err: client.ErrCityNotFound}
	svc, _ := newTestService(m, true)

	_, err := svc.GetCurrentWeather(context.Background(), "Atlantis")
	if !errors.Is(err, client.ErrCityNotFound) {
		t.Errorf("error = %v, want ErrCityNotFound", err)
	}
	if n, _ := svc.CacheSizes(); n != 0 {
		t.Errorf("cache size = %d, want 0 after failed fetch", n)
	}
}

func TestWeatherService_CacheKeyIsCaseSensitive(t *testing.T) {
	m := &mockWeatherClient{temperature: 10}
	svc, _ := newTestService(m, true)
	ctx := context.Background()

	_, _ = svc.GetCurrentWeather(ctx, "Paris")
	_, _ = svc.GetCurrentWeather(ctx, "paris")
	if n := atomic.LoadInt32(&m.currentCalls); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestWeatherService_ForecastCacheIsIndependent(t *testing.T) {
	m := &mockWeatherClient{temperature: 10}
	svc, _ := newTestService(m, true)
	ctx := context.Background()

	_, _ = svc.GetCurrentWeather(ctx, "Paris")
	f, err := svc.GetForecast(ctx, "Paris")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if len(f.Intervals) != 1 {
		t.Errorf("len(Intervals) = %d, want 1", len(f.Intervals))
	}
	_, _ = svc.GetForecast(ctx, "Paris")

	if n := atomic.LoadInt32(&m.forecastCalls); n != 1 {
		t.Errorf("forecast calls = %d, want 1", n)
	}
	if cur, fc := svc.CacheSizes(); cur != 1 || fc != 1 {
		t.Errorf("CacheSizes() = %d, %d; want 1, 1", cur, fc)
	}
}

func TestWeatherService_ConcurrentMissesCoalesced(t *testing.T) {
	m := &mockWeatherClient{temperature: 10, delay: 50 * time.Millisecond}
	svc, _ := newTestService(m, true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetCurrentWeather(context.Background(), "Paris"); err != nil {
				t.Errorf("GetCurrentWeather() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&m.currentCalls); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestWeatherService_GetWeatherByCoords_NotCached(t *testing.T) {
	m := &mockWeatherClient{}
	svc, _ := newTestService(m, true)
	ctx := context.Background()

	got, err := svc.GetWeatherByCoords(ctx, 48.85, 2.35)
	if err != nil {
		t.Fatalf("GetWeatherByCoords() error = %v", err)
	}
	if got.City != "Coordsville" {
		t.Errorf("City = %q", got.City)
	}
	if cur, _ := svc.CacheSizes(); cur != 0 {
		t.Errorf("current cache size = %d, want 0", cur)
	}

	if _, err := svc.GetWeatherByCoords(ctx, 95, 0); !errors.Is(err, client.ErrLocationUnavailable) {
		t.Errorf("error = %v, want ErrLocationUnavailable", err)
	}
}

func TestWeatherService_ValidateAPIKey(t *testing.T) {
	m := &mockWeatherClient{validateErr: client.ErrInvalidAPIKey}
	svc, _ := newTestService(m, true)
	if err := svc.ValidateAPIKey(context.Background()); !errors.Is(err, client.ErrInvalidAPIKey) {
		t.Errorf("ValidateAPIKey() error = %v", err)
	}
}
