package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-lookup-service/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-service/internal/traffic"
)

// HealthConfig holds health thresholds and probes. Nil probes are skipped.
type HealthConfig struct {
	ErrorWindow time.Duration
	ErrorPct    int
	// StorePing checks the key-value backend.
	StorePing func(ctx context.Context) error
	// CircuitState reports the upstream circuit breaker.
	CircuitState func() circuitbreaker.State
	Version      string
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

type cacheSizes struct {
	Current  int `json:"current"`
	Forecast int `json:"forecast"`
}

type healthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
	Cache     cacheSizes        `json:"cache"`
	Timestamp string            `json:"timestamp"`
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	version := "dev"
	if h.health != nil && h.health.Version != "" {
		version = h.health.Version
	}
	current, forecast := h.weather.CacheSizes()
	writeJSON(w, result.statusCode, healthResponse{
		Status:    result.status,
		Service:   "weather-lookup-service",
		Version:   version,
		Checks:    result.checks,
		Cache:     cacheSizes{Current: current, Forecast: forecast},
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > API key invalid > storage unreachable > warming > error rate > circuit open > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	checks := map[string]string{}
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", checks}
	}

	if err := h.weather.ValidateAPIKey(ctx); err != nil {
		checks["weatherApi"] = "unhealthy"
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid", checks}
	}
	checks["weatherApi"] = "healthy"

	if h.health == nil {
		return healthResult{"healthy", http.StatusOK, "", checks}
	}

	if h.health.StorePing != nil {
		if err := h.health.StorePing(ctx); err != nil {
			checks["storage"] = "unhealthy"
			return healthResult{"degraded", http.StatusServiceUnavailable, "storage_unreachable", checks}
		}
		checks["storage"] = "healthy"
	}

	if lifecycle.IsWarming() {
		return healthResult{"warming", http.StatusOK, "cache_warming", checks}
	}

	if h.health.ErrorWindow > 0 && h.health.ErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.health.ErrorWindow)
		if total > 0 && errs*100 >= h.health.ErrorPct*total {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach", checks}
		}
	}

	if h.health.CircuitState != nil {
		state := h.health.CircuitState()
		checks["circuit"] = state.String()
		if state == circuitbreaker.StateOpen {
			return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open", checks}
		}
	}
	return healthResult{"healthy", http.StatusOK, "", checks}
}
