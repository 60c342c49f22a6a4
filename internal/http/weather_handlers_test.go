package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/service"
	"github.com/kjstillabower/weather-lookup-service/internal/testhelpers"
	"github.com/kjstillabower/weather-lookup-service/internal/traffic"
	"github.com/kjstillabower/weather-lookup-service/internal/weather"
)

func TestGetCurrentWeather_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/weather/London", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp currentWeatherResponse
	decode(t, w, &resp)
	if resp.Weather.City != "London" || resp.Weather.Country != "GB" {
		t.Errorf("city = %s,%s, want London,GB", resp.Weather.City, resp.Weather.Country)
	}
	if resp.Weather.Temperature != 15 || resp.Weather.Unit != "celsius" {
		t.Errorf("temperature = %v %s, want 15 celsius", resp.Weather.Temperature, resp.Weather.Unit)
	}
	if len(resp.Alerts) != 0 {
		t.Errorf("alerts = %v, want none", resp.Alerts)
	}
}

func TestGetCurrentWeather_UnitsQuery(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/weather/London?units=fahrenheit", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp currentWeatherResponse
	decode(t, w, &resp)
	if resp.Weather.Temperature != 59 || resp.Weather.UnitSymbol != "°F" {
		t.Errorf("temperature = %v%s, want 59°F", resp.Weather.Temperature, resp.Weather.UnitSymbol)
	}

	assertError(t, env.do(t, http.MethodGet, "/weather/London?units=kelvin", "", nil), http.StatusBadRequest, "INVALID_UNIT")
}

func TestGetCurrentWeather_ServedFromCache(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		if w := env.do(t, http.MethodGet, "/weather/Paris", "", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	if got := env.upstream.Calls("/weather"); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestGetCurrentWeather_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		setup  func(*testEnv)
		status int
		code   string
	}{
		{"unknown city", "/weather/Atlantis", nil, http.StatusNotFound, "CITY_NOT_FOUND"},
		{"invalid characters", "/weather/Lon$don", nil, http.StatusBadRequest, "INVALID_CITY"},
		{"upstream 500", "/weather/London", func(e *testEnv) { e.upstream.FailWith(http.StatusInternalServerError) }, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{"upstream 429", "/weather/London", func(e *testEnv) { e.upstream.FailWith(http.StatusTooManyRequests) }, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(env)
			}
			w := env.do(t, http.MethodGet, tt.path, "", nil)
			assertError(t, w, tt.status, tt.code)

			var envl errorEnvelope
			decode(t, w, &envl)
			if envl.Error.RequestID == "" || envl.Error.RequestID != w.Header().Get("X-Correlation-ID") {
				t.Errorf("requestId = %q, header = %q", envl.Error.RequestID, w.Header().Get("X-Correlation-ID"))
			}
		})
	}
}

func TestGetCurrentWeather_InvalidAPIKey(t *testing.T) {
	env := newTestEnv(t, func(s *envSetup) {
		s.deps.Weather = service.NewWeatherService(newClient(t, "wrong-key-0000000", s.upstreamURL), service.Options{})
	})

	assertError(t, env.do(t, http.MethodGet, "/weather/London", "", nil), http.StatusBadGateway, "INVALID_API_KEY")
}

func TestGetCurrentWeather_ErrorRateTracked(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/weather/London", "", nil)
	env.do(t, http.MethodGet, "/weather/Atlantis", "", nil)
	env.upstream.FailWith(http.StatusBadGateway)
	env.do(t, http.MethodGet, "/weather/Paris", "", nil)

	errs, total := traffic.ErrorRate(time.Minute)
	if errs != 1 || total != 3 {
		t.Errorf("ErrorRate() = %d/%d, want 1/3", errs, total)
	}
}

func TestGetForecast(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/weather/London/forecast", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp forecastResponse
	decode(t, w, &resp)
	if len(resp.Daily) != weather.MaxForecastDays {
		t.Errorf("daily = %d days, want %d", len(resp.Daily), weather.MaxForecastDays)
	}
	if len(resp.Hourly) != weather.HourlyPoints {
		t.Errorf("hourly = %d points, want %d", len(resp.Hourly), weather.HourlyPoints)
	}
	if resp.Daily[0].Date != "2024-05-01" {
		t.Errorf("first day = %s, want 2024-05-01", resp.Daily[0].Date)
	}
	if resp.Hourly[0].PrecipPercent != 25 {
		t.Errorf("precip = %d, want 25", resp.Hourly[0].PrecipPercent)
	}
	if got := env.upstream.Calls("/weather"); got != 0 {
		t.Errorf("forecast touched /weather %d times", got)
	}
}

func TestGetAlerts(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.AddCity(testhelpers.City{Name: "Phoenix", Country: "US", Temp: 40, Humidity: 10, WindSpeed: 2, Visibility: 10000, Condition: "Clear"})
	env.upstream.AddCity(testhelpers.City{Name: "Foggy", Country: "GB", Temp: 12, Humidity: 95, WindSpeed: 12, Visibility: 800, Condition: "Rain"})

	tests := []struct {
		city string
		want []weather.AlertType
	}{
		{"Phoenix", []weather.AlertType{weather.AlertHeat}},
		{"Foggy", []weather.AlertType{weather.AlertWind, weather.AlertRain, weather.AlertVisibility, weather.AlertHumidity}},
		{"London", nil},
	}
	for _, tt := range tests {
		t.Run(tt.city, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/weather/"+tt.city+"/alerts", "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var resp alertsResponse
			decode(t, w, &resp)
			if len(resp.Alerts) != len(tt.want) {
				t.Fatalf("alerts = %+v, want types %v", resp.Alerts, tt.want)
			}
			for i, a := range resp.Alerts {
				if a.Type != tt.want[i] {
					t.Errorf("alert[%d] = %s, want %s", i, a.Type, tt.want[i])
				}
			}
		})
	}
}

func TestGetWeatherByCoords(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/weather/coords?lat=48.85&lon=2.35", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp currentWeatherResponse
	decode(t, w, &resp)
	if resp.Weather.City != "Paris" {
		t.Errorf("city = %s, want Paris", resp.Weather.City)
	}

	assertError(t, env.do(t, http.MethodGet, "/weather/coords?lat=48.85", "", nil), http.StatusBadRequest, "INVALID_COORDINATES")
	assertError(t, env.do(t, http.MethodGet, "/weather/coords?lat=95&lon=0", "", nil), http.StatusBadRequest, "INVALID_COORDINATES")
	assertError(t, env.do(t, http.MethodGet, "/weather/coords?lat=1&lon=1", "", nil), http.StatusBadRequest, "LOCATION_UNAVAILABLE")
}

func TestWeatherRoutes_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(s *envSetup) {
		s.router.Limiter = rateLimiter(1)
	})

	if w := env.do(t, http.MethodGet, "/weather/London", "", nil); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	assertError(t, env.do(t, http.MethodGet, "/weather/London", "", nil), http.StatusTooManyRequests, "RATE_LIMITED")
	if got := traffic.DenialCount(time.Minute); got != 1 {
		t.Errorf("DenialCount() = %d, want 1", got)
	}
	// Health is not rate limited.
	if w := env.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("/health status = %d", w.Code)
	}
}
