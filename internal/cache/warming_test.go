package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

type mockWeatherFetcher struct {
	mu      sync.Mutex
	fail    map[string]error
	fetched []string
}

func (m *mockWeatherFetcher) GetCurrentWeather(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, city)
	if err := m.fail[city]; err != nil {
		return models.WeatherSnapshot{}, err
	}
	return models.WeatherSnapshot{City: city, Temperature: 10}, nil
}

func TestCacheWarmer_Warm_Success(t *testing.T) {
	fetcher := &mockWeatherFetcher{}
	warmer := NewCacheWarmer(fetcher, nil)

	if err := warmer.Warm(context.Background(), []string{"Seattle", "Boston"}); err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if len(fetcher.fetched) != 2 {
		t.Errorf("fetched %d cities, want 2", len(fetcher.fetched))
	}
}

func TestCacheWarmer_Warm_EmptyCities(t *testing.T) {
	warmer := NewCacheWarmer(&mockWeatherFetcher{}, nil)
	if err := warmer.Warm(context.Background(), nil); err != nil {
		t.Errorf("Warm(nil) error = %v, want nil", err)
	}
}

func TestCacheWarmer_Warm_AggregatesErrors(t *testing.T) {
	fetcher := &mockWeatherFetcher{fail: map[string]error{
		"Atlantis": errors.New("city not found"),
		"Mu":       errors.New("city not found"),
	}}
	warmer := NewCacheWarmer(fetcher, nil)

	err := warmer.Warm(context.Background(), []string{"Atlantis", "Paris", "Mu"})
	if err == nil {
		t.Fatal("Warm() error = nil, want aggregated error")
	}
	for _, city := range []string{"Atlantis", "Mu"} {
		if !strings.Contains(err.Error(), "warm "+city) {
			t.Errorf("error %q should mention %s", err, city)
		}
	}
	if strings.Contains(err.Error(), "Paris") {
		t.Errorf("error %q should not mention successful city", err)
	}
}

func TestCacheWarmer_WarmPeriodic_StopsOnCancel(t *testing.T) {
	warmer := NewCacheWarmer(&mockWeatherFetcher{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := warmer.WarmPeriodic(ctx, []string{"Paris"}, 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WarmPeriodic() error = %v, want context.DeadlineExceeded", err)
	}
}
