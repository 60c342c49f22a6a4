package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
)

// WeatherClient fetches raw weather data from the provider. It never caches.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, city string) (models.WeatherSnapshot, error)
	GetForecast(ctx context.Context, city string) (models.ForecastSnapshot, error)
	GetWeatherByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrCityNotFound        = errors.New("city not found")
	ErrInvalidAPIKey       = errors.New("invalid API key")
	ErrFetchFailed         = errors.New("failed to fetch weather data")
	ErrLocationUnavailable = errors.New("location unavailable")

	// Refinements of ErrFetchFailed; errors.Is(err, ErrFetchFailed) holds for all of them.
	ErrRateLimited     = fmt.Errorf("%w: rate limited", ErrFetchFailed)
	ErrUpstreamFailure = fmt.Errorf("%w: upstream failure", ErrFetchFailed)
	ErrCircuitOpen     = fmt.Errorf("%w: circuit open", ErrFetchFailed)
)

const (
	endpointWeather  = "weather"
	endpointForecast = "forecast"
	endpointCoords   = "coords"
)

// OpenWeatherClient calls the OpenWeatherMap 2.5 REST API.
type OpenWeatherClient struct {
	apiKey         string
	baseURL        string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker
	now            func() time.Time
}

// NewOpenWeatherClient creates a client that makes a single attempt per call.
// baseURL is the API root, e.g. https://api.openweathermap.org/data/2.5.
func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, baseURL, timeout, 1, 100*time.Millisecond, 2*time.Second)
}

func NewOpenWeatherClientWithRetry(apiKey, baseURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("invalid API URL %q", baseURL)
	}
	if retryAttempts < 1 {
		retryAttempts = 1
	}

	return &OpenWeatherClient{
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}, nil
}

// SetCircuitBreaker routes every upstream attempt through cb.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// GetCurrentWeather fetches current conditions for city.
func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("q", city)

	var resp currentResponse
	if err := c.fetch(ctx, endpointWeather, "/weather", params, &resp); err != nil {
		return models.WeatherSnapshot{}, err
	}
	return resp.toSnapshot(city, c.now()), nil
}

// GetForecast fetches the 5 day / 3 hour forecast for city.
func (c *OpenWeatherClient) GetForecast(ctx context.Context, city string) (models.ForecastSnapshot, error) {
	params := url.Values{}
	params.Set("q", city)

	var resp forecastResponse
	if err := c.fetch(ctx, endpointForecast, "/forecast", params, &resp); err != nil {
		return models.ForecastSnapshot{}, err
	}
	return resp.toSnapshot(city, c.now()), nil
}

// GetWeatherByCoords fetches current conditions for a coordinate pair.
// Out-of-range coordinates fail with ErrLocationUnavailable before any request.
func (c *OpenWeatherClient) GetWeatherByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	if !validCoords(lat, lon) {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: coordinates %v,%v out of range", ErrLocationUnavailable, lat, lon)
	}
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var resp currentResponse
	if err := c.fetch(ctx, endpointCoords, "/weather", params, &resp); err != nil {
		if errors.Is(err, ErrCityNotFound) {
			return models.WeatherSnapshot{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
		}
		return models.WeatherSnapshot{}, err
	}
	return resp.toSnapshot("", c.now()), nil
}

func validCoords(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// fetch performs GET {baseURL}{path} with retries and decodes the JSON body into out.
func (c *OpenWeatherClient) fetch(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.WeatherAPIRetriesTotal.Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
			case <-time.After(delay):
			}
		}

		var body []byte
		call := func(ctx context.Context) error {
			var err error
			body, err = c.callAPI(ctx, endpoint, path, params)
			return err
		}
		var err error
		if c.breaker != nil {
			err = c.breaker.Call(ctx, call)
			if errors.Is(err, circuitbreaker.ErrOpen) {
				return ErrCircuitOpen
			}
		} else {
			err = call(ctx)
		}

		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("%w: parse response: %w", ErrFetchFailed, err)
			}
			return nil
		}

		lastErr = err
		if !c.isRetryable(err) {
			return err
		}
	}

	if c.retryAttempts > 1 {
		return fmt.Errorf("exhausted retries: %w", lastErr)
	}
	return lastErr
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, path, params)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%w: build request: %w", ErrFetchFailed, err)
	}

	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: request timeout: %w", ErrFetchFailed, err)
		}
		return nil, fmt.Errorf("%w: http request failed: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", ErrFetchFailed, err)
	}
	return body, nil
}

func (c *OpenWeatherClient) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func (c *OpenWeatherClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, path string, params url.Values) (*http.Request, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: provider rejected credentials", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return ErrCityNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == http.StatusTooManyRequests {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues a cheap lookup to confirm the key is accepted.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("q", "London")
	req, err := c.buildRequest(ctx, "/weather", params)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
