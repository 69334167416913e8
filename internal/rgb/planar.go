// Package rgb converts 8-bit RGB frames between planar and interleaved layouts.
//
// Planar frames carry one buffer per channel (R, G, B in that order).
// Interleaved frames carry one buffer where the byte for pixel p, channel c
// lives at offset 3p+c. Conversions never allocate; callers size buffers once
// and reuse them for every frame.
package rgb

import "fmt"

// Channels is the number of samples per interleaved pixel.
const Channels = 3

// Planar is a three-plane 8-bit RGB image. Stride is the distance in bytes
// between rows of each plane; zero means Width.
type Planar struct {
	Width, Height int
	Stride        int
	Planes        [Channels][]byte
}

// NewPlanar allocates a contiguous planar frame of w x h.
func NewPlanar(w, h int) Planar {
	p := Planar{Width: w, Height: h, Stride: w}
	for c := range p.Planes {
		p.Planes[c] = make([]byte, w*h)
	}
	return p
}

// Size returns the interleaved byte length of a w x h frame.
func Size(w, h int) int { return w * h * Channels }

func (p Planar) stride() int {
	if p.Stride == 0 {
		return p.Width
	}
	return p.Stride
}

// contiguous reports whether every plane is a packed Width*Height run.
func (p Planar) contiguous() bool { return p.stride() == p.Width }

// mustFit panics when p or the interleaved buffer of length n cannot hold
// a p.Width x p.Height frame. Mismatches are caller bugs, not runtime errors.
func (p Planar) mustFit(n int) {
	if p.Width <= 0 || p.Height <= 0 {
		panic(fmt.Sprintf("rgb: invalid frame size %dx%d", p.Width, p.Height))
	}
	if p.stride() < p.Width {
		panic(fmt.Sprintf("rgb: stride %d shorter than width %d", p.stride(), p.Width))
	}
	if n != Size(p.Width, p.Height) {
		panic(fmt.Sprintf("rgb: interleaved buffer is %d bytes, want %d", n, Size(p.Width, p.Height)))
	}
	need := p.stride()*(p.Height-1) + p.Width
	for c, pl := range p.Planes {
		if len(pl) < need {
			panic(fmt.Sprintf("rgb: plane %d is %d bytes, want at least %d", c, len(pl), need))
		}
	}
}
