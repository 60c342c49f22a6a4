package kvstore

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendMemcached = "memcached"
	BackendRedis     = "redis"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	Redis RedisConfig

	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendMemcached:
		return NewMemcachedStore(opts.MemcachedAddrs, opts.MemcachedTimeout, opts.MemcachedMaxIdleConns), nil
	case BackendRedis:
		return NewRedisStore(ctx, opts.Redis)
	case BackendSQLite, BackendPostgres:
		return OpenSQLStore(opts.Backend, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
