package preview

import (
	"sync"

	"github.com/sirupsen/logrus"

	"vsdlisr/internal/rgb"
)

// Source produces raw interleaved RGB24 frames of a fixed size.
type Source interface {
	// Next returns one frame (len = width*height*3), or false once the
	// source is stopped.
	Next() ([]byte, bool)
	Stop()
}

// FilterSource renders the host's output frames in a loop and interleaves
// them for the encoder. A failed frame repeats the last good one.
type FilterSource struct {
	host      *Host
	numFrames int

	mu      sync.Mutex
	n       int
	buf     []byte
	stopped bool
}

// NewFilterSource loops over frames 0..numFrames-1 of host's output, each
// width x height.
func NewFilterSource(host *Host, width, height, numFrames int) *FilterSource {
	if numFrames <= 0 {
		numFrames = 1
	}
	return &FilterSource{host: host, numFrames: numFrames, buf: make([]byte, rgb.Size(width, height))}
}

func (s *FilterSource) Next() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, false
	}
	n := s.n
	s.n = (s.n + 1) % s.numFrames

	fr, err := s.host.Render(n)
	if err != nil {
		framesFailed.Add(1)
		logrus.WithFields(logrus.Fields{
			"function": "FilterSource.Next",
			"frame":    n,
		}).WithError(err).Warn("Render failed, repeating last frame")
		return s.buf, true
	}
	defer s.host.FreeFrame(fr)

	p := fr.RGB()
	if rgb.Size(p.Width, p.Height) != len(s.buf) {
		framesFailed.Add(1)
		return s.buf, true
	}
	rgb.ToInterleaved(s.buf, p)
	framesRendered.Add(1)
	return s.buf, true
}

func (s *FilterSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
