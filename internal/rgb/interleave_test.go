package rgb

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPlanar(t *testing.T, w, h int, seed int64) Planar {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	p := NewPlanar(w, h)
	for c := range p.Planes {
		_, err := rng.Read(p.Planes[c])
		require.NoError(t, err)
	}
	return p
}

func TestToInterleaved_Layout(t *testing.T) {
	const w, h = 7, 5
	src := randomPlanar(t, w, h, 1)
	dst := make([]byte, Size(w, h))

	ToInterleaved(dst, src)

	last := w*h - 1
	for c := 0; c < Channels; c++ {
		assert.Equal(t, src.Planes[c][0], dst[c], "first pixel, channel %d", c)
		assert.Equal(t, src.Planes[c][last], dst[3*last+c], "last pixel, channel %d", c)
	}
	for p := 0; p < w*h; p++ {
		for c := 0; c < Channels; c++ {
			require.Equal(t, src.Planes[c][p], dst[3*p+c], "pixel %d channel %d", p, c)
		}
	}
}

func TestToInterleaved_ChannelsIndependent(t *testing.T) {
	const w, h = 4, 3
	for c := 0; c < Channels; c++ {
		src := NewPlanar(w, h)
		for i := range src.Planes[c] {
			src.Planes[c][i] = 0xff
		}
		dst := make([]byte, Size(w, h))
		ToInterleaved(dst, src)

		for i, v := range dst {
			if i%Channels == c {
				assert.Equal(t, byte(0xff), v, "offset %d", i)
			} else {
				assert.Zero(t, v, "offset %d", i)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	sizes := []struct{ w, h int }{
		{1, 1}, {2, 1}, {1, 9}, {16, 9}, {33, 17}, {320, 240},
	}
	for i, sz := range sizes {
		src := randomPlanar(t, sz.w, sz.h, int64(i+10))
		buf := make([]byte, Size(sz.w, sz.h))
		out := NewPlanar(sz.w, sz.h)

		ToInterleaved(buf, src)
		FromInterleaved(out, buf)

		for c := 0; c < Channels; c++ {
			assert.Equal(t, src.Planes[c], out.Planes[c], "%dx%d plane %d", sz.w, sz.h, c)
		}
	}
}

func TestFromInterleaved_Layout(t *testing.T) {
	const w, h = 3, 2
	src := []byte{
		0, 1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16, 17,
	}
	dst := NewPlanar(w, h)

	FromInterleaved(dst, src)

	assert.Equal(t, []byte{0, 3, 6, 9, 12, 15}, dst.Planes[0])
	assert.Equal(t, []byte{1, 4, 7, 10, 13, 16}, dst.Planes[1])
	assert.Equal(t, []byte{2, 5, 8, 11, 14, 17}, dst.Planes[2])
}

func TestStridedPlanes(t *testing.T) {
	const w, h, stride = 5, 4, 8
	src := Planar{Width: w, Height: h, Stride: stride}
	for c := range src.Planes {
		src.Planes[c] = make([]byte, stride*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				src.Planes[c][y*stride+x] = byte(c*100 + y*w + x)
			}
		}
	}
	buf := make([]byte, Size(w, h))
	ToInterleaved(buf, src)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := y*w + x
			for c := 0; c < Channels; c++ {
				require.Equal(t, byte(c*100+p), buf[3*p+c])
			}
		}
	}

	out := Planar{Width: w, Height: h, Stride: stride}
	for c := range out.Planes {
		out.Planes[c] = make([]byte, stride*h)
	}
	FromInterleaved(out, buf)
	for c := 0; c < Channels; c++ {
		for y := 0; y < h; y++ {
			assert.Equal(t, src.Planes[c][y*stride:y*stride+w], out.Planes[c][y*stride:y*stride+w])
		}
	}
}

func TestPreconditionViolationsPanic(t *testing.T) {
	p := NewPlanar(4, 4)

	assert.Panics(t, func() { ToInterleaved(make([]byte, Size(4, 4)-1), p) }, "short interleaved buffer")
	assert.Panics(t, func() { FromInterleaved(p, make([]byte, Size(4, 4)+3)) }, "long interleaved buffer")

	short := NewPlanar(4, 4)
	short.Planes[2] = short.Planes[2][:15]
	assert.Panics(t, func() { ToInterleaved(make([]byte, Size(4, 4)), short) }, "short plane")

	assert.Panics(t, func() { ToInterleaved(nil, Planar{}) }, "empty frame")

	narrow := NewPlanar(4, 4)
	narrow.Stride = 2
	assert.Panics(t, func() { ToInterleaved(make([]byte, Size(4, 4)), narrow) }, "stride below width")
}

func TestImpl(t *testing.T) {
	assert.Contains(t, []string{"go", "libyuv"}, Impl())
}

func BenchmarkToInterleaved1080p(b *testing.B) {
	src := NewPlanar(1920, 1080)
	dst := make([]byte, Size(1920, 1080))
	b.SetBytes(int64(len(dst)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ToInterleaved(dst, src)
	}
}
