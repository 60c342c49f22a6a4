package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/account"
	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
	"github.com/kjstillabower/weather-lookup-service/internal/preferences"
	"github.com/kjstillabower/weather-lookup-service/internal/session"
	"github.com/kjstillabower/weather-lookup-service/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error":{code,message,requestId}} envelope.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationIDFromContext(r.Context()),
		},
	})
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON")
		return false
	}
	return true
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string // empty uses err.Error()
}

// errorMappings is checked in order; the first errors.Is match wins. Location errors sit
// ahead of city-not-found because a failed coordinate lookup wraps both.
var errorMappings = []errorMapping{
	{client.ErrLocationUnavailable, http.StatusBadRequest, "LOCATION_UNAVAILABLE", "Location unavailable"},
	{validation.ErrCoordinatesInvalid, http.StatusBadRequest, "INVALID_COORDINATES", "lat and lon must be valid coordinates"},
	{validation.ErrCityEmpty, http.StatusBadRequest, "INVALID_CITY", ""},
	{validation.ErrCityTooShort, http.StatusBadRequest, "INVALID_CITY", ""},
	{validation.ErrCityTooLong, http.StatusBadRequest, "INVALID_CITY", ""},
	{validation.ErrCityInvalidChars, http.StatusBadRequest, "INVALID_CITY", ""},
	{client.ErrCityNotFound, http.StatusNotFound, "CITY_NOT_FOUND", "City not found"},
	{client.ErrInvalidAPIKey, http.StatusBadGateway, "INVALID_API_KEY", "Weather provider rejected the API key"},
	{client.ErrFetchFailed, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out"},
	{account.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", ""},
	{preferences.ErrInvalidPreference, http.StatusBadRequest, "INVALID_PREFERENCE", ""},
	{account.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN", "Email already registered"},
	{account.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},
	{session.ErrNoSession, http.StatusUnauthorized, "UNAUTHENTICATED", "Sign in required"},
	{account.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
}

// statusFor returns the HTTP status, error code and message for err.
func statusFor(err error) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, m.code, msg
		}
	}
	return http.StatusInternalServerError, "INTERNAL", "Internal error"
}

// writeDomainError maps err to a response. Server-side failures are logged with the
// upstream category.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := statusFor(err)
	logger := observability.LoggerFromContext(r.Context())
	switch {
	case status == http.StatusInternalServerError:
		logger.Error("request failed", zap.Error(err))
	case status >= 500:
		logger.Debug("upstream error", zap.Error(err), zap.String("category", string(client.CategorizeError(err))))
	}
	writeError(w, r, status, code, msg)
}
