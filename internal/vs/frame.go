package vs

import "vsdlisr/internal/rgb"

// MaxPlanes is the largest plane count of any supported format.
const MaxPlanes = 3

// Frame is one picture owned by the host. Planes may alias host memory and
// are only valid until the frame is freed.
type Frame struct {
	Format  Format
	Width   int
	Height  int
	Planes  [MaxPlanes][]byte
	Strides [MaxPlanes]int

	// Ref is the host's native handle for the frame.
	Ref any
}

// NewFrame allocates a Go-owned frame with tightly packed planes.
func NewFrame(f Format, w, h int) *Frame {
	fr := &Frame{Format: f, Width: w, Height: h}
	bps := f.BytesPerSample()
	for p := 0; p < f.NumPlanes && p < MaxPlanes; p++ {
		pw, ph := w, h
		if p > 0 {
			pw >>= f.SubSamplingW
			ph >>= f.SubSamplingH
		}
		fr.Strides[p] = pw * bps
		fr.Planes[p] = make([]byte, pw*bps*ph)
	}
	return fr
}

// RGB returns the frame's planes as an rgb.Planar view. The frame must be
// RGB24; all three planes share one stride.
func (f *Frame) RGB() rgb.Planar {
	return rgb.Planar{
		Width:  f.Width,
		Height: f.Height,
		Stride: f.Strides[0],
		Planes: f.Planes,
	}
}
