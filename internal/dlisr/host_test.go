package dlisr

import (
	"errors"
	"sync"
	"sync/atomic"

	"vsdlisr/internal/vs"
)

// testNode is a clip whose frame n is a deterministic function of n.
type testNode struct {
	vi       vs.VideoInfo
	stride   int
	released atomic.Int32
}

func newTestNode(w, h int) *testNode {
	return &testNode{vi: vs.VideoInfo{Format: vs.RGB24, FPSNum: 30, FPSDen: 1, Width: w, Height: h, NumFrames: 100}}
}

func (n *testNode) VideoInfo() vs.VideoInfo { return n.vi }
func (n *testNode) Release()                { n.released.Add(1) }

func sourceSample(n, c, x, y int) byte { return byte(n*7 + c*61 + y*13 + x*3) }

func (n *testNode) frame(i int) *vs.Frame {
	w, h := n.vi.Width, n.vi.Height
	stride := n.stride
	if stride == 0 {
		stride = w
	}
	fr := &vs.Frame{Format: n.vi.Format, Width: w, Height: h}
	for c := 0; c < 3; c++ {
		fr.Strides[c] = stride
		fr.Planes[c] = make([]byte, stride*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				fr.Planes[c][y*stride+x] = sourceSample(i, c, x, y)
			}
		}
	}
	return fr
}

// testContext records requests and serves frames from its node.
type testContext struct {
	node   *testNode
	getErr error

	mu       sync.Mutex
	requests []int
	served   []*vs.Frame
}

func (c *testContext) RequestFrame(n int, node vs.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, n)
}

func (c *testContext) GetFrame(n int, node vs.Node) (*vs.Frame, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	fr := c.node.frame(n)
	c.mu.Lock()
	c.served = append(c.served, fr)
	c.mu.Unlock()
	return fr, nil
}

func (c *testContext) Requests() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.requests...)
}

// testCore hands out padded frames and tracks which ones were freed.
type testCore struct {
	pad    int
	newErr error

	mu       sync.Mutex
	created  []*vs.Frame
	propSrcs []*vs.Frame
	freed    map[*vs.Frame]int
}

var errNoFrame = errors.New("out of frames")

func (c *testCore) NewVideoFrame(f vs.Format, w, h int, propSrc *vs.Frame) (*vs.Frame, error) {
	if c.newErr != nil {
		return nil, c.newErr
	}
	fr := &vs.Frame{Format: f, Width: w, Height: h}
	for p := 0; p < 3; p++ {
		fr.Strides[p] = w + c.pad
		fr.Planes[p] = make([]byte, (w+c.pad)*h)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, fr)
	c.propSrcs = append(c.propSrcs, propSrc)
	return fr, nil
}

func (c *testCore) FreeFrame(fr *vs.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed == nil {
		c.freed = make(map[*vs.Frame]int)
	}
	c.freed[fr]++
}

func (c *testCore) FreedCount(fr *vs.Frame) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freed[fr]
}
