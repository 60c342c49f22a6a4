package observability

import (
	"fmt"

	"go.uber.org/zap"
)

// Flush syncs buffered logs before process exit. Metrics are pull-based and need no flush.
func Flush(logger *zap.Logger) error {
	if logger != nil {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}
