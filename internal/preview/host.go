package preview

import (
	"errors"
	"fmt"
	"sync"

	"vsdlisr/internal/vs"
)

var (
	// ErrNotRequested is returned when a filter fetches a frame it did not
	// request during the request phase.
	ErrNotRequested = errors.New("frame was not requested")

	// ErrNoOutput is returned when the ready phase produced no frame.
	ErrNoOutput = errors.New("filter returned no frame")
	// ErrUndeclared is returned when a filter requests a frame its
	// dependencies do not allow.
	ErrUndeclared = errors.New("request outside declared dependencies")
)

// FrameSource is a clip that can produce its frames directly.
type FrameSource interface {
	vs.Node
	Frame(n int) *vs.Frame
}

// Host drives a filter through the frame server's two-phase handshake and
// tracks frame ownership so leaks show up in Live.
type Host struct {
	filter vs.Filter
	src    FrameSource

	mu   sync.Mutex
	live int
}

// NewHost returns a host that feeds src to filter.
func NewHost(filter vs.Filter, src FrameSource) *Host {
	return &Host{filter: filter, src: src}
}

// Render produces output frame n. The caller hands the frame back with
// FreeFrame.
func (h *Host) Render(n int) (*vs.Frame, error) {
	ctx := &frameContext{host: h}
	fr, err := h.filter.GetFrame(n, vs.ActivationInitial, ctx, h)
	if err != nil {
		return nil, err
	}
	if fr != nil {
		h.FreeFrame(fr)
		return nil, fmt.Errorf("frame %d: output returned during request phase", n)
	}
	if len(ctx.requested) == 0 {
		return nil, fmt.Errorf("frame %d: filter requested no source frames", n)
	}
	if err := h.checkRequests(n, ctx.requested); err != nil {
		return nil, err
	}

	fr, err = h.filter.GetFrame(n, vs.ActivationAllFramesReady, ctx, h)
	if err != nil {
		return nil, err
	}
	if fr == nil {
		return nil, fmt.Errorf("frame %d: %w", n, ErrNoOutput)
	}
	return fr, nil
}

func (h *Host) NewVideoFrame(f vs.Format, width, height int, propSrc *vs.Frame) (*vs.Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	h.track(1)
	return vs.NewFrame(f, width, height), nil
}

func (h *Host) FreeFrame(f *vs.Frame) {
	if f != nil {
		h.track(-1)
	}
}

// Live returns the number of frames handed out and not yet freed.
func (h *Host) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

func (h *Host) track(d int) {
	h.mu.Lock()
	h.live += d
	h.mu.Unlock()
}

// checkRequests holds the filter to the dependencies it declared.
func (h *Host) checkRequests(n int, reqs []request) error {
	deps := h.filter.Dependencies()
	for _, r := range reqs {
		allowed := false
		for _, d := range deps {
			if d.Node == r.node && d.Allows(n, r.n) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("frame %d: request for source frame %d: %w", n, r.n, ErrUndeclared)
		}
	}
	return nil
}

type request struct {
	n    int
	node vs.Node
}

// frameContext is the scheduler view for one Render call.
type frameContext struct {
	host      *Host
	requested []request
}

func (c *frameContext) RequestFrame(n int, node vs.Node) {
	c.requested = append(c.requested, request{n: n, node: node})
}

func (c *frameContext) GetFrame(n int, node vs.Node) (*vs.Frame, error) {
	for _, r := range c.requested {
		if r.n == n && r.node == node {
			c.host.track(1)
			return c.host.src.Frame(n), nil
		}
	}
	return nil, fmt.Errorf("frame %d: %w", n, ErrNotRequested)
}
