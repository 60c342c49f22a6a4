// Package http is the JSON API: weather lookups, accounts, sessions, history,
// preferences, admin and health.
package http

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/account"
	"github.com/kjstillabower/weather-lookup-service/internal/history"
	"github.com/kjstillabower/weather-lookup-service/internal/preferences"
	"github.com/kjstillabower/weather-lookup-service/internal/service"
	"github.com/kjstillabower/weather-lookup-service/internal/session"
)

// Deps are the collaborators a Handler serves requests with.
type Deps struct {
	Weather     *service.WeatherService
	Accounts    *account.Store
	Sessions    *session.Tracker
	Preferences *preferences.Store
	History     *history.Tracker
	Health      *HealthConfig
	Logger      *zap.Logger

	// CityMinLength and CityMaxLength bound the {city} path segment, in runes.
	CityMinLength int
	CityMaxLength int

	Now func() time.Time
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather     *service.WeatherService
	accounts    *account.Store
	sessions    *session.Tracker
	preferences *preferences.Store
	history     *history.Tracker
	health      *HealthConfig
	logger      *zap.Logger
	cityMin     int
	cityMax     int
	now         func() time.Time

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a Handler. A nil Logger becomes a no-op logger and a nil Now uses
// time.Now.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Handler{
		weather:     d.Weather,
		accounts:    d.Accounts,
		sessions:    d.Sessions,
		preferences: d.Preferences,
		history:     d.History,
		health:      d.Health,
		logger:      d.Logger,
		cityMin:     d.CityMinLength,
		cityMax:     d.CityMaxLength,
		now:         d.Now,
	}
}
