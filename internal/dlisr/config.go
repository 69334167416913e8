package dlisr

import (
	"fmt"
	"math"

	"vsdlisr/internal/rgb"
	"vsdlisr/internal/vs"
)

// DefaultScale is used when rfactor is not passed.
const DefaultScale = 2

// StreamConfig is the fixed geometry of one opened stream.
type StreamConfig struct {
	SourceWidth  int
	SourceHeight int
	Scale        int
	Format       vs.Format
}

// NewStreamConfig validates the input clip and scale factor. It does not
// touch the device.
func NewStreamConfig(vi vs.VideoInfo, scale int) (StreamConfig, error) {
	if !vi.IsConstant() {
		return StreamConfig{}, setupError(msgFormat, ErrVariableFormat, nil)
	}
	f := vi.Format
	if f.ColorFamily != vs.ColorRGB || f.SampleType != vs.SampleInteger || f.BitsPerSample != 8 {
		return StreamConfig{}, setupError(msgFormat, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f), nil)
	}
	if scale < 1 {
		return StreamConfig{}, setupError(msgScale, fmt.Errorf("%w: %d", ErrInvalidScale, scale), nil)
	}
	if int64(vi.Width)*int64(scale) > math.MaxInt32 || int64(vi.Height)*int64(scale) > math.MaxInt32 {
		return StreamConfig{}, setupError(msgScale, fmt.Errorf("%w: %dx%d x%d overflows", ErrInvalidScale, vi.Width, vi.Height, scale), nil)
	}
	return StreamConfig{
		SourceWidth:  vi.Width,
		SourceHeight: vi.Height,
		Scale:        scale,
		Format:       f,
	}, nil
}

func (c StreamConfig) DestWidth() int  { return c.SourceWidth * c.Scale }
func (c StreamConfig) DestHeight() int { return c.SourceHeight * c.Scale }

// SourceBytes is the size of one interleaved input frame.
func (c StreamConfig) SourceBytes() int { return rgb.Size(c.SourceWidth, c.SourceHeight) }

// DestBytes is the size of one interleaved output frame.
func (c StreamConfig) DestBytes() int { return rgb.Size(c.DestWidth(), c.DestHeight()) }

// DestVideoInfo returns the output clip description: the source with its
// dimensions multiplied by the scale.
func (c StreamConfig) DestVideoInfo(src vs.VideoInfo) vs.VideoInfo {
	dst := src
	dst.Width = c.DestWidth()
	dst.Height = c.DestHeight()
	return dst
}
