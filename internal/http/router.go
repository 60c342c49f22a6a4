package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-lookup-service/internal/observability"
)

// RouterConfig controls the middleware around the routes.
type RouterConfig struct {
	// RequestTimeout bounds weather lookups. Zero disables the deadline.
	RequestTimeout time.Duration
	// Limiter throttles weather lookups. Nil disables rate limiting.
	Limiter *rate.Limiter
	Logger  *zap.Logger
}

// NewRouter wires every route onto a gorilla/mux router.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = h.logger
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	auth := router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.Handle("/logout", h.RequireUser(http.HandlerFunc(h.Logout))).Methods(http.MethodPost)
	auth.Handle("/me", h.RequireUser(http.HandlerFunc(h.Me))).Methods(http.MethodGet)

	wx := router.PathPrefix("/weather").Subrouter()
	wx.Use(RateLimitMiddleware(cfg.Limiter))
	if cfg.RequestTimeout > 0 {
		wx.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	wx.Use(h.OptionalUser)
	// coords is registered first so it is not taken as a city name.
	wx.HandleFunc("/coords", h.GetWeatherByCoords).Methods(http.MethodGet)
	wx.HandleFunc("/{city}", h.GetCurrentWeather).Methods(http.MethodGet)
	wx.HandleFunc("/{city}/forecast", h.GetForecast).Methods(http.MethodGet)
	wx.HandleFunc("/{city}/alerts", h.GetAlerts).Methods(http.MethodGet)

	hist := router.PathPrefix("/history").Subrouter()
	hist.Use(h.RequireUser)
	hist.HandleFunc("", h.GetHistory).Methods(http.MethodGet)
	hist.HandleFunc("", h.ClearHistory).Methods(http.MethodDelete)
	hist.HandleFunc("/{city}", h.RemoveHistoryEntry).Methods(http.MethodDelete)

	prefs := router.PathPrefix("/preferences").Subrouter()
	prefs.Use(h.RequireUser)
	prefs.HandleFunc("", h.GetPreferences).Methods(http.MethodGet)
	prefs.HandleFunc("", h.UpdatePreferences).Methods(http.MethodPatch)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(h.RequireUser, h.RequireAdmin)
	admin.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{email}", h.DeleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{email}/admin", h.ToggleAdmin).Methods(http.MethodPost)

	return router
}
