package lifecycle

import "sync/atomic"

var (
	shuttingDown atomic.Bool
	warming      atomic.Bool
)

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// Health handler returns 503 with status shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// SetWarming marks the initial cache warm as in progress. Health reports "warming" meanwhile.
func SetWarming(v bool) {
	warming.Store(v)
}

// IsWarming reports whether the initial cache warm is still running.
func IsWarming() bool {
	return warming.Load()
}
