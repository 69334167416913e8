package preview

import (
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu      sync.Mutex
	samples []media.Sample
}

func (r *recorder) WriteSample(s media.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func TestSampleBroadcaster_FansOut(t *testing.T) {
	b := NewSampleBroadcaster()
	defer b.Close()
	a, c := &recorder{}, &recorder{}

	removeA := b.Add(a)
	b.Add(c)
	assert.Equal(t, 2, b.Len())

	assert.NoError(t, b.WriteSample(media.Sample{Data: []byte{1}, Duration: time.Millisecond}))
	assert.Eventually(t, func() bool { return a.count() == 1 && c.count() == 1 }, time.Second, time.Millisecond)

	removeA()
	removeA()
	assert.Equal(t, 1, b.Len())

	assert.NoError(t, b.WriteSample(media.Sample{Data: []byte{2}}))
	assert.Eventually(t, func() bool { return c.count() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, a.count())
}

func TestSampleBroadcaster_Close(t *testing.T) {
	b := NewSampleBroadcaster()
	remove := b.Add(&recorder{})
	b.Close()
	assert.Zero(t, b.Len())
	remove()
	assert.NoError(t, b.WriteSample(media.Sample{}))
}
