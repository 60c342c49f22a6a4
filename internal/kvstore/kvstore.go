// Package kvstore is the persistent string key-value store every user-facing component
// sits on: accounts, sessions, preferences and history.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is a persistent string key-value store. Get reports (value, true, nil) when the key
// exists and ("", false, nil) when it does not. Remove of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend is a Store holding external connections.
type Backend interface {
	Store
	Ping(ctx context.Context) error
	Close() error
}

// GetJSON loads key and decodes it into v. Returns false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
