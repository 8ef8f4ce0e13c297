package mstp

import (
	"time"

	"go.uber.org/atomic"
)

// SilenceTimer measures the time since the last octet was seen on or
// sent to the line.
type SilenceTimer interface {
	// Elapsed returns the time since the last Reset.
	Elapsed() time.Duration
	// Reset restarts the measurement.
	Reset()
}

// ClockSilenceTimer is a SilenceTimer based on the monotonic clock.
// It may be reset and read from different goroutines.
type ClockSilenceTimer struct {
	start time.Time
	last  atomic.Int64
}

// NewSilenceTimer creates a ClockSilenceTimer started now.
func NewSilenceTimer() *ClockSilenceTimer {
	return &ClockSilenceTimer{start: time.Now()}
}

// Elapsed implements SilenceTimer.
func (t *ClockSilenceTimer) Elapsed() time.Duration {
	return time.Since(t.start) - time.Duration(t.last.Load())
}

// Reset implements SilenceTimer.
func (t *ClockSilenceTimer) Reset() {
	t.last.Store(int64(time.Since(t.start)))
}
