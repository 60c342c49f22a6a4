package kvstore

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/observability"
)

// instrumented counts backend operations and logs failures.
type instrumented struct {
	Backend
	logger *zap.Logger
}

// Instrument wraps b so every Get, Set and Remove is counted in kvOperationsTotal.
func Instrument(b Backend, logger *zap.Logger) Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{Backend: b, logger: logger}
}

func (s *instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.Backend.Get(ctx, key)
	s.record("get", key, err)
	return v, ok, err
}

func (s *instrumented) Set(ctx context.Context, key, value string) error {
	err := s.Backend.Set(ctx, key, value)
	s.record("set", key, err)
	return err
}

func (s *instrumented) Remove(ctx context.Context, key string) error {
	err := s.Backend.Remove(ctx, key)
	s.record("remove", key, err)
	return err
}

func (s *instrumented) record(op, key string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		s.logger.Warn("kv operation failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
	}
	observability.KVOperationsTotal.WithLabelValues(op, outcome).Inc()
}
