package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-lookup-service/internal/account"
	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/history"
	"github.com/kjstillabower/weather-lookup-service/internal/kvstore"
	"github.com/kjstillabower/weather-lookup-service/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-service/internal/preferences"
	"github.com/kjstillabower/weather-lookup-service/internal/service"
	"github.com/kjstillabower/weather-lookup-service/internal/session"
	"github.com/kjstillabower/weather-lookup-service/internal/testhelpers"
	"github.com/kjstillabower/weather-lookup-service/internal/traffic"
)

const adminEmail = "admin@example.com"

type testEnv struct {
	router   *mux.Router
	upstream *testhelpers.FakeOpenWeather
	kv       *kvstore.MemoryStore
	sessions *session.Tracker
	logs     *observer.ObservedLogs
}

type envSetup struct {
	deps        Deps
	router      RouterConfig
	upstreamURL string
}

type envOption func(*envSetup)

// newTestEnv wires the full handler stack over a memory store and a fake upstream.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	traffic.Reset()
	lifecycle.SetShuttingDown(false)
	lifecycle.SetWarming(false)
	t.Cleanup(func() {
		traffic.Reset()
		lifecycle.SetShuttingDown(false)
		lifecycle.SetWarming(false)
	})

	upstream := testhelpers.NewFakeOpenWeather(t)
	c := newClient(t, testhelpers.APIKey, upstream.URL)
	kv := kvstore.NewMemoryStore()
	accounts := account.NewStore(kv, []string{adminEmail})
	sessions := session.NewTracker(kv, accounts)

	core, logs := observer.New(zapcore.DebugLevel)
	deps := Deps{
		Weather:       service.NewWeatherService(c, service.Options{CoalesceEnabled: true}),
		Accounts:      accounts,
		Sessions:      sessions,
		Preferences:   preferences.NewStore(accounts),
		History:       history.NewTracker(kv, history.DefaultMaxEntries),
		Logger:        zap.New(core),
		CityMinLength: 1,
		CityMaxLength: 100,
	}
	setup := &envSetup{
		deps:        deps,
		router:      RouterConfig{RequestTimeout: 5 * time.Second},
		upstreamURL: upstream.URL,
	}
	for _, opt := range opts {
		opt(setup)
	}
	return &testEnv{
		router:   NewRouter(NewHandler(setup.deps), setup.router),
		upstream: upstream,
		kv:       kv,
		sessions: sessions,
		logs:     logs,
	}
}

func newClient(t *testing.T, apiKey, baseURL string) *client.OpenWeatherClient {
	t.Helper()
	c, err := client.NewOpenWeatherClient(apiKey, baseURL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

func rateLimiter(burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Hour), burst)
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signUp registers and logs in a user, returning the session token.
func (e *testEnv) signUp(t *testing.T, name, email string) string {
	t.Helper()
	reg := map[string]string{"name": name, "email": email, "password": "secret123"}
	if w := e.do(t, http.MethodPost, "/auth/register", "", reg); w.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", email, w.Code, w.Body.String())
	}
	w := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body = %s", email, w.Code, w.Body.String())
	}
	var resp loginResponse
	decode(t, w, &resp)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	var env errorEnvelope
	decode(t, w, &env)
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
}
