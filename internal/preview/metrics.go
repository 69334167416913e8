package preview

import "sync/atomic"

// Process-wide preview counters, reported by /health.
var (
	framesRendered atomic.Uint64 // frames the filter produced
	framesFailed   atomic.Uint64 // frames the filter failed on
	framesWritten  atomic.Uint64 // frames handed to the encoder
	samplesSent    atomic.Uint64 // encoded samples written to the broadcaster
)

// ResetCounters resets all metrics to zero.
func ResetCounters() {
	framesRendered.Store(0)
	framesFailed.Store(0)
	framesWritten.Store(0)
	samplesSent.Store(0)
}

// GetCounters returns a snapshot of current metrics.
func GetCounters() map[string]uint64 {
	return map[string]uint64{
		"frames_rendered": framesRendered.Load(),
		"frames_failed":   framesFailed.Load(),
		"frames_written":  framesWritten.Load(),
		"samples_sent":    samplesSent.Load(),
	}
}
