package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML, .env and the environment.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	RequestTimeout time.Duration

	CacheTTL        time.Duration
	CacheMaxEntries int
	CoalesceEnabled bool
	CoalesceTimeout time.Duration

	StorageBackend        string // memory, memcached, redis, sqlite or postgres
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisTimeout          time.Duration
	DatabaseDSN           string

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	HistoryMaxEntries int
	AdminEmails       []string

	WarmCities   []string
	WarmInterval time.Duration

	CityMinLength int
	CityMaxLength int

	HealthErrorWindow time.Duration
	HealthErrorPct    int

	ShutdownTimeout time.Duration

	TrackedLocations []string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		TTL        string `yaml:"ttl"`
		MaxEntries int    `yaml:"max_entries"`
	} `yaml:"cache"`

	Coalesce struct {
		Enabled *bool  `yaml:"enabled"`
		Timeout string `yaml:"timeout"`
	} `yaml:"coalesce"`

	Storage struct {
		Backend   string `yaml:"backend"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr    string `yaml:"addr"`
			DB      int    `yaml:"db"`
			Timeout string `yaml:"timeout"`
		} `yaml:"redis"`
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		CircuitBreaker   struct {
			Enabled          *bool  `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	History struct {
		MaxEntries int `yaml:"max_entries"`
	} `yaml:"history"`

	Auth struct {
		AdminEmails []string `yaml:"admin_emails"`
	} `yaml:"auth"`

	Warm struct {
		Cities   []string `yaml:"cities"`
		Interval string   `yaml:"interval"`
	} `yaml:"warm"`

	Validation struct {
		CityMinLength int `yaml:"city_min_length"`
		CityMaxLength int `yaml:"city_max_length"`
	} `yaml:"validation"`

	Health struct {
		ErrorWindow string `yaml:"error_window"`
		ErrorPct    int    `yaml:"error_pct"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Metrics struct {
		TrackedLocations []string `yaml:"tracked_locations"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
	RedisPassword string `yaml:"redis_password"`
	DatabaseDSN   string `yaml:"database_dsn"`
}

// envOverrides are applied after the YAML file. Unset variables leave the file value.
type envOverrides struct {
	Port            string        `envconfig:"PORT"`
	WeatherAPIKey   string        `envconfig:"WEATHER_API_KEY"`
	WeatherAPIURL   string        `envconfig:"WEATHER_API_URL"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL"`
	CoalesceEnabled *bool         `envconfig:"COALESCE_ENABLED"`
	StorageBackend  string        `envconfig:"STORAGE_BACKEND"`
	MemcachedAddrs  string        `envconfig:"MEMCACHED_ADDRS"`
	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	DatabaseDSN     string        `envconfig:"DATABASE_DSN"`
	AdminEmails     []string      `envconfig:"ADMIN_EMAILS"`
	WarmCities      []string      `envconfig:"WARM_CITIES"`
}

// Load reads configuration relative to the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom reads dir/.env (optional), dir/config/{ENV_NAME}.yaml (default dev),
// then environment overrides, then dir/config/secrets.yaml for anything still missing.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := fromFile(fc)

	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	applyOverrides(cfg, ov)

	if err := applySecrets(cfg, filepath.Join(dir, "config", "secrets.yaml")); err != nil {
		return nil, err
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromFile(fc fileConfig) *Config {
	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/2.5"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.CacheMaxEntries = positiveOr(fc.Cache.MaxEntries, 500)
	cfg.CoalesceEnabled = boolOr(fc.Coalesce.Enabled, true)
	cfg.CoalesceTimeout = parseDuration(fc.Coalesce.Timeout, 10*time.Second)

	cfg.StorageBackend = strings.TrimSpace(strings.ToLower(fc.Storage.Backend))
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = "memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(fc.Storage.Memcached.Addrs)
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Storage.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = positiveOr(fc.Storage.Memcached.MaxIdleConns, 2)
	cfg.RedisAddr = strings.TrimSpace(fc.Storage.Redis.Addr)
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisDB = fc.Storage.Redis.DB
	cfg.RedisTimeout = parseDuration(fc.Storage.Redis.Timeout, time.Second)
	cfg.DatabaseDSN = strings.TrimSpace(fc.Storage.DSN)

	cfg.RetryAttempts = positiveOr(fc.Reliability.RetryMaxAttempts, 1)
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = positiveOr(fc.Reliability.RateLimitRPS, 20)
	cfg.RateLimitBurst = positiveOr(fc.Reliability.RateLimitBurst, 40)

	cb := fc.Reliability.CircuitBreaker
	cfg.CircuitBreakerEnabled = boolOr(cb.Enabled, true)
	cfg.CircuitBreakerFailureThreshold = positiveOr(cb.FailureThreshold, 5)
	cfg.CircuitBreakerSuccessThreshold = positiveOr(cb.SuccessThreshold, 2)
	cfg.CircuitBreakerTimeout = parseDuration(cb.Timeout, 30*time.Second)

	cfg.HistoryMaxEntries = positiveOr(fc.History.MaxEntries, 10)
	cfg.AdminEmails = fc.Auth.AdminEmails

	cfg.WarmCities = fc.Warm.Cities
	cfg.WarmInterval = parseDurationOrZero(fc.Warm.Interval, 0)

	cfg.CityMinLength = positiveOr(fc.Validation.CityMinLength, 1)
	cfg.CityMaxLength = positiveOr(fc.Validation.CityMaxLength, 100)

	cfg.HealthErrorWindow = parseDuration(fc.Health.ErrorWindow, time.Minute)
	cfg.HealthErrorPct = positiveOr(fc.Health.ErrorPct, 50)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.TrackedLocations = fc.Metrics.TrackedLocations
	return cfg
}

func applyOverrides(cfg *Config, ov envOverrides) {
	setString := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	setString(&cfg.ServerPort, ov.Port)
	setString(&cfg.WeatherAPIKey, ov.WeatherAPIKey)
	setString(&cfg.WeatherAPIURL, ov.WeatherAPIURL)
	setString(&cfg.StorageBackend, strings.ToLower(ov.StorageBackend))
	setString(&cfg.MemcachedAddrs, ov.MemcachedAddrs)
	setString(&cfg.RedisAddr, ov.RedisAddr)
	setString(&cfg.RedisPassword, ov.RedisPassword)
	setString(&cfg.DatabaseDSN, ov.DatabaseDSN)
	if ov.CacheTTL > 0 {
		cfg.CacheTTL = ov.CacheTTL
	}
	if ov.CoalesceEnabled != nil {
		cfg.CoalesceEnabled = *ov.CoalesceEnabled
	}
	if len(ov.AdminEmails) > 0 {
		cfg.AdminEmails = ov.AdminEmails
	}
	if len(ov.WarmCities) > 0 {
		cfg.WarmCities = ov.WarmCities
	}
}

// applySecrets fills credentials still empty after env overrides from the secrets file.
func applySecrets(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return fmt.Errorf("parse secrets file: %w", err)
	}
	if cfg.WeatherAPIKey == "" {
		cfg.WeatherAPIKey = sec.WeatherAPIKey
	}
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = sec.RedisPassword
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = sec.DatabaseDSN
	}
	return nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero returns defaultVal on empty string or parse error, and zero or
// negative durations as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// validate performs post-load checks. RequestTimeout is raised above WeatherAPITimeout when needed.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	if cfg.CityMinLength > cfg.CityMaxLength {
		return fmt.Errorf("validation.city_min_length (%d) exceeds city_max_length (%d)", cfg.CityMinLength, cfg.CityMaxLength)
	}
	if cfg.HealthErrorPct > 100 {
		return fmt.Errorf("health.error_pct must be at most 100, got %d", cfg.HealthErrorPct)
	}
	switch cfg.StorageBackend {
	case "memory", "memcached", "redis":
	case "sqlite":
		if cfg.DatabaseDSN == "" {
			cfg.DatabaseDSN = "weather-lookup.db"
		}
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return fmt.Errorf("storage.dsn (or DATABASE_DSN) is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory, memcached, redis, sqlite or postgres, got %q", cfg.StorageBackend)
	}
	return nil
}
