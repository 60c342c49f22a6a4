// Package testhelpers provides a fake OpenWeatherMap server for handler and wiring tests.
package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// APIKey is accepted by FakeOpenWeather; any other appid gets 401.
const APIKey = "test-api-key-0123456789"

// City is the weather a fake city reports.
type City struct {
	Name       string
	Country    string
	Temp       float64
	Humidity   int
	WindSpeed  float64
	Visibility int
	Condition  string
	Lat, Lon   float64
}

// FakeOpenWeather serves /weather and /forecast for a fixed set of cities.
type FakeOpenWeather struct {
	*httptest.Server

	mu     sync.Mutex
	cities map[string]City
	calls  map[string]int
	status int
}

// NewFakeOpenWeather starts a server preloaded with London and Paris. It closes on test cleanup.
func NewFakeOpenWeather(t *testing.T) *FakeOpenWeather {
	t.Helper()
	f := &FakeOpenWeather{
		cities: map[string]City{},
		calls:  map[string]int{},
	}
	f.AddCity(City{Name: "London", Country: "GB", Temp: 15, Humidity: 60, WindSpeed: 4, Visibility: 10000, Condition: "Clouds", Lat: 51.51, Lon: -0.13})
	f.AddCity(City{Name: "Paris", Country: "FR", Temp: 22, Humidity: 50, WindSpeed: 3, Visibility: 10000, Condition: "Clear", Lat: 48.85, Lon: 2.35})
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// AddCity registers or replaces a city keyed by its exact name.
func (f *FakeOpenWeather) AddCity(c City) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities[c.Name] = c
}

// FailWith makes every request answer with status until reset with 0.
func (f *FakeOpenWeather) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Calls returns how many requests reached path ("/weather" or "/forecast").
func (f *FakeOpenWeather) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *FakeOpenWeather) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	status := f.status
	q := r.URL.Query()
	city, found := f.lookup(q.Get("q"), q.Get("lat"), q.Get("lon"))
	f.mu.Unlock()

	switch {
	case q.Get("appid") != APIKey:
		writeStatus(w, http.StatusUnauthorized, "Invalid API key")
		return
	case status != 0:
		writeStatus(w, status, http.StatusText(status))
		return
	case !found:
		writeStatus(w, http.StatusNotFound, "city not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/weather":
		_ = json.NewEncoder(w).Encode(currentPayload(city))
	case "/forecast":
		_ = json.NewEncoder(w).Encode(forecastPayload(city, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	default:
		writeStatus(w, http.StatusNotFound, "unknown endpoint")
	}
}

// lookup must be called with f.mu held.
func (f *FakeOpenWeather) lookup(q, lat, lon string) (City, bool) {
	if q != "" {
		c, ok := f.cities[q]
		return c, ok
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	if err1 != nil || err2 != nil {
		return City{}, false
	}
	for _, c := range f.cities {
		if c.Lat == la && c.Lon == lo {
			return c, true
		}
	}
	return City{}, false
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"cod":%d,"message":%q}`, status, msg)
}

func currentPayload(c City) map[string]interface{} {
	return map[string]interface{}{
		"coord":      map[string]float64{"lat": c.Lat, "lon": c.Lon},
		"weather":    []map[string]interface{}{{"id": 800, "main": c.Condition, "description": c.Condition, "icon": "01d"}},
		"main":       map[string]interface{}{"temp": c.Temp, "feels_like": c.Temp, "temp_min": c.Temp - 1, "temp_max": c.Temp + 1, "pressure": 1013, "humidity": c.Humidity},
		"visibility": c.Visibility,
		"wind":       map[string]interface{}{"speed": c.WindSpeed, "deg": 180},
		"clouds":     map[string]int{"all": 10},
		"sys":        map[string]interface{}{"country": c.Country, "sunrise": 1714537200, "sunset": 1714591200},
		"timezone":   0,
		"name":       c.Name,
	}
}

// forecastPayload returns 40 three-hour records starting at start (5 full days).
func forecastPayload(c City, start time.Time) map[string]interface{} {
	list := make([]map[string]interface{}, 0, 40)
	for i := 0; i < 40; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		list = append(list, map[string]interface{}{
			"dt":      ts.Unix(),
			"main":    map[string]interface{}{"temp": c.Temp + float64(i%8) - 4, "feels_like": c.Temp, "temp_min": c.Temp - 5, "temp_max": c.Temp + 5, "humidity": c.Humidity},
			"weather": []map[string]interface{}{{"main": c.Condition, "description": c.Condition, "icon": "01d"}},
			"wind":    map[string]interface{}{"speed": c.WindSpeed},
			"pop":     0.25,
			"dt_txt":  ts.Format("2006-01-02 15:04:05"),
		})
	}
	return map[string]interface{}{
		"list": list,
		"city": map[string]interface{}{"name": c.Name, "country": c.Country, "timezone": 0},
	}
}
