package preview

import (
	"sync"

	"github.com/pion/webrtc/v3/pkg/media"
)

// SampleBroadcaster fans encoded samples out to every session's track. Each
// sink has its own small queue so a slow peer does not stall the encoder.
type SampleBroadcaster struct {
	mu    sync.RWMutex
	sinks map[*sink]struct{}
}

type sink struct {
	ch   chan media.Sample
	quit chan struct{}
	w    SampleWriter
}

// NewSampleBroadcaster creates a broadcaster. Call Close when done.
func NewSampleBroadcaster() *SampleBroadcaster {
	return &SampleBroadcaster{sinks: make(map[*sink]struct{})}
}

// Add registers a track and returns the function that removes it.
func (b *SampleBroadcaster) Add(w SampleWriter) (remove func()) {
	s := &sink{ch: make(chan media.Sample, 4), quit: make(chan struct{}), w: w}
	go func() {
		for {
			select {
			case sm := <-s.ch:
				_ = s.w.WriteSample(sm)
			case <-s.quit:
				return
			}
		}
	}()
	b.mu.Lock()
	b.sinks[s] = struct{}{}
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		if _, ok := b.sinks[s]; ok {
			delete(b.sinks, s)
			close(s.quit)
		}
		b.mu.Unlock()
	}
}

// Len returns the number of registered sinks.
func (b *SampleBroadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sinks)
}

// WriteSample queues sm for every sink. A sink whose queue is full misses
// the sample.
func (b *SampleBroadcaster) WriteSample(sm media.Sample) error {
	b.mu.RLock()
	for s := range b.sinks {
		select {
		case s.ch <- sm:
		default:
		}
	}
	b.mu.RUnlock()
	return nil
}

// Close stops all sink workers and clears the list.
func (b *SampleBroadcaster) Close() {
	b.mu.Lock()
	for s := range b.sinks {
		close(s.quit)
		delete(b.sinks, s)
	}
	b.mu.Unlock()
}
