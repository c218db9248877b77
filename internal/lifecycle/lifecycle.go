package lifecycle

import (
	"sync/atomic"
	"time"
)

var (
	shuttingDown atomic.Bool
	startedAt    atomic.Int64 // unix nanos; 0 until MarkStarted
)

// MarkStarted records when the server began accepting traffic.
func MarkStarted(t time.Time) {
	startedAt.Store(t.UnixNano())
}

// Uptime returns the time since MarkStarted, or 0 if the server has not started.
func Uptime(now time.Time) time.Duration {
	ns := startedAt.Load()
	if ns == 0 {
		return 0
	}
	return now.Sub(time.Unix(0, ns))
}

// BeginShutdown flags the process as draining. Call when SIGTERM/SIGINT is received;
// /health reports shutting-down with 503 from then on.
func BeginShutdown() {
	shuttingDown.Store(true)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// Reset clears the shutdown flag and start time. For tests only.
func Reset() {
	shuttingDown.Store(false)
	startedAt.Store(0)
}
