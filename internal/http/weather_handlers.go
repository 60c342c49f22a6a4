package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
	"github.com/kjstillabower/weather-lookup-service/internal/preferences"
	"github.com/kjstillabower/weather-lookup-service/internal/traffic"
	"github.com/kjstillabower/weather-lookup-service/internal/validation"
	"github.com/kjstillabower/weather-lookup-service/internal/weather"
)

type currentWeatherResponse struct {
	Weather weather.CurrentView `json:"weather"`
	Alerts  []weather.Alert     `json:"alerts,omitempty"`
}

type forecastResponse struct {
	City    string                 `json:"city"`
	Country string                 `json:"country"`
	Unit    string                 `json:"unit"`
	Daily   []weather.DailySummary `json:"daily"`
	Hourly  []weather.HourlyPoint  `json:"hourly"`
}

type alertsResponse struct {
	City   string          `json:"city"`
	Alerts []weather.Alert `json:"alerts"`
}

// displaySettings resolves the preferences that shape a weather response: the signed-in
// user's settings or the defaults, with ?units= taking precedence over the stored unit.
func displaySettings(r *http.Request) (models.Preferences, bool) {
	prefs := models.DefaultPreferences()
	if user, ok := userFromContext(r.Context()); ok {
		prefs = preferences.WithDefaults(user.Settings)
	}
	if raw := r.URL.Query().Get("units"); raw != "" {
		unit, ok := weather.NormalizeUnit(raw)
		if !ok {
			return prefs, false
		}
		prefs.Unit = unit
	}
	return prefs, true
}

func (h *Handler) cityParam(r *http.Request) (string, error) {
	return validation.ValidateCity(mux.Vars(r)["city"], h.cityMin, h.cityMax)
}

// recordOutcome feeds the health error rate. Client mistakes such as an unknown city
// do not count as errors.
func recordOutcome(err error) {
	if status, _, _ := statusFor(err); err != nil && status >= 500 {
		traffic.RecordError()
		return
	}
	traffic.RecordSuccess()
}

func writeInvalidUnit(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusBadRequest, "INVALID_UNIT", "units must be celsius or fahrenheit")
}

func recordAlerts(alerts []weather.Alert) {
	for _, a := range alerts {
		observability.AlertsDerivedTotal.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}
}

// GetCurrentWeather handles GET /weather/{city}.
func (h *Handler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	city, err := h.cityParam(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	prefs, ok := displaySettings(r)
	if !ok {
		writeInvalidUnit(w, r)
		return
	}

	snap, err := h.weather.GetCurrentWeather(r.Context(), city)
	recordOutcome(err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.RecordWeatherQuery("current", city)
	h.writeCurrent(w, r, snap, prefs)
}

// GetWeatherByCoords handles GET /weather/coords?lat=&lon=.
func (h *Handler) GetWeatherByCoords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := validation.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	prefs, ok := displaySettings(r)
	if !ok {
		writeInvalidUnit(w, r)
		return
	}

	snap, err := h.weather.GetWeatherByCoords(r.Context(), lat, lon)
	recordOutcome(err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.RecordWeatherQuery("coords", snap.City)
	h.writeCurrent(w, r, snap, prefs)
}

func (h *Handler) writeCurrent(w http.ResponseWriter, r *http.Request, snap models.WeatherSnapshot, prefs models.Preferences) {
	resp := currentWeatherResponse{Weather: weather.FormatCurrent(snap, prefs.Unit)}
	if prefs.ShowAlerts {
		resp.Alerts = weather.DeriveAlerts(resp.Weather)
		recordAlerts(resp.Alerts)
	}
	h.rememberLookup(r, prefs, snap.City, snap.Country)
	writeJSON(w, http.StatusOK, resp)
}

// GetForecast handles GET /weather/{city}/forecast.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	city, err := h.cityParam(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	prefs, ok := displaySettings(r)
	if !ok {
		writeInvalidUnit(w, r)
		return
	}

	fc, err := h.weather.GetForecast(r.Context(), city)
	recordOutcome(err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.RecordWeatherQuery("forecast", city)
	h.rememberLookup(r, prefs, fc.City, fc.Country)
	writeJSON(w, http.StatusOK, forecastResponse{
		City:    fc.City,
		Country: fc.Country,
		Unit:    prefs.Unit,
		Daily:   weather.DailyForecast(fc.Intervals, prefs.Unit),
		Hourly:  weather.HourlyForecast(fc.Intervals, prefs.Unit),
	})
}

// GetAlerts handles GET /weather/{city}/alerts. Alerts are returned even when the user
// has hidden them from the current-weather view.
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	city, err := h.cityParam(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	prefs, ok := displaySettings(r)
	if !ok {
		writeInvalidUnit(w, r)
		return
	}

	snap, err := h.weather.GetCurrentWeather(r.Context(), city)
	recordOutcome(err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.RecordWeatherQuery("alerts", city)
	alerts := weather.DeriveAlerts(weather.FormatCurrent(snap, prefs.Unit))
	recordAlerts(alerts)
	if alerts == nil {
		alerts = []weather.Alert{}
	}
	writeJSON(w, http.StatusOK, alertsResponse{City: snap.City, Alerts: alerts})
}

// rememberLookup appends to the signed-in user's history when they keep one. Failures
// are logged; the lookup itself has already succeeded.
func (h *Handler) rememberLookup(r *http.Request, prefs models.Preferences, city, country string) {
	user, ok := userFromContext(r.Context())
	if !ok || !prefs.SaveHistory || city == "" {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	if _, err := h.history.Add(ctx, user.ID, city, country); err != nil {
		observability.LoggerFromContext(ctx).Warn("history write failed", zap.Error(err))
		return
	}
	observability.HistoryWritesTotal.WithLabelValues("add").Inc()
}
