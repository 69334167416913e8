//go:build !cgo || !yuv

package rgb

// ToInterleaved packs the three planes of src into dst (Width*Height*3 bytes).
func ToInterleaved(dst []byte, src Planar) {
	src.mustFit(len(dst))
	r, g, b := src.Planes[0], src.Planes[1], src.Planes[2]
	if src.contiguous() {
		n := src.Width * src.Height
		for px := 0; px < n; px++ {
			o := px * 3
			dst[o+0] = r[px]
			dst[o+1] = g[px]
			dst[o+2] = b[px]
		}
		return
	}
	s := src.stride()
	for y := 0; y < src.Height; y++ {
		row := y * s
		o := y * src.Width * 3
		for x := 0; x < src.Width; x++ {
			dst[o+0] = r[row+x]
			dst[o+1] = g[row+x]
			dst[o+2] = b[row+x]
			o += 3
		}
	}
}

// FromInterleaved unpacks src (Width*Height*3 bytes) into the planes of dst.
func FromInterleaved(dst Planar, src []byte) {
	dst.mustFit(len(src))
	r, g, b := dst.Planes[0], dst.Planes[1], dst.Planes[2]
	if dst.contiguous() {
		n := dst.Width * dst.Height
		for px := 0; px < n; px++ {
			o := px * 3
			r[px] = src[o+0]
			g[px] = src[o+1]
			b[px] = src[o+2]
		}
		return
	}
	s := dst.stride()
	for y := 0; y < dst.Height; y++ {
		row := y * s
		o := y * dst.Width * 3
		for x := 0; x < dst.Width; x++ {
			r[row+x] = src[o+0]
			g[row+x] = src[o+1]
			b[row+x] = src[o+2]
			o += 3
		}
	}
}

// Impl reports the active conversion backend.
func Impl() string { return "go" }
