package preview

import (
	"sync/atomic"

	"vsdlisr/internal/vs"
)

// Clip is a synthetic RGB24 clip: a gradient that moves with the frame
// number, so consecutive frames differ and motion is visible in the player.
type Clip struct {
	vi       vs.VideoInfo
	released atomic.Bool
}

// NewClip returns a clip of numFrames frames of w x h at fps.
func NewClip(w, h, fps, numFrames int) *Clip {
	return &Clip{vi: vs.VideoInfo{
		Format:    vs.RGB24,
		FPSNum:    int64(fps),
		FPSDen:    1,
		Width:     w,
		Height:    h,
		NumFrames: numFrames,
	}}
}

func (c *Clip) VideoInfo() vs.VideoInfo { return c.vi }

// Release marks the clip released. Frames can still be generated; the flag
// only lets callers check that the filter gave the clip back.
func (c *Clip) Release() { c.released.Store(true) }

// Released reports whether Release was called.
func (c *Clip) Released() bool { return c.released.Load() }

// Frame generates frame n.
func (c *Clip) Frame(n int) *vs.Frame {
	w, h := c.vi.Width, c.vi.Height
	fr := vs.NewFrame(c.vi.Format, w, h)
	r, g, b := fr.Planes[0], fr.Planes[1], fr.Planes[2]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*w + x
			r[off] = byte(x + n*4)
			g[off] = byte(y + n*3)
			b[off] = byte(x + y + n*5)
		}
	}
	return fr
}
