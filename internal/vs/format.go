package vs

import "fmt"

// ColorFamily values match the host API.
type ColorFamily int

const (
	ColorUndefined ColorFamily = 0
	ColorGray      ColorFamily = 1
	ColorRGB       ColorFamily = 2
	ColorYUV       ColorFamily = 3
)

func (c ColorFamily) String() string {
	switch c {
	case ColorGray:
		return "Gray"
	case ColorRGB:
		return "RGB"
	case ColorYUV:
		return "YUV"
	default:
		return "Undefined"
	}
}

// SampleType values match the host API.
type SampleType int

const (
	SampleInteger SampleType = 0
	SampleFloat   SampleType = 1
)

// Format describes the sample layout of every plane of a frame.
type Format struct {
	ColorFamily   ColorFamily
	SampleType    SampleType
	BitsPerSample int
	SubSamplingW  int
	SubSamplingH  int
	NumPlanes     int
}

// Common formats.
var (
	RGB24    = Format{ColorFamily: ColorRGB, SampleType: SampleInteger, BitsPerSample: 8, NumPlanes: 3}
	RGB48    = Format{ColorFamily: ColorRGB, SampleType: SampleInteger, BitsPerSample: 16, NumPlanes: 3}
	RGBS     = Format{ColorFamily: ColorRGB, SampleType: SampleFloat, BitsPerSample: 32, NumPlanes: 3}
	YUV420P8 = Format{ColorFamily: ColorYUV, SampleType: SampleInteger, BitsPerSample: 8, SubSamplingW: 1, SubSamplingH: 1, NumPlanes: 3}
	YUV444P8 = Format{ColorFamily: ColorYUV, SampleType: SampleInteger, BitsPerSample: 8, NumPlanes: 3}
	Gray8    = Format{ColorFamily: ColorGray, SampleType: SampleInteger, BitsPerSample: 8, NumPlanes: 1}
	NoFormat = Format{}
)

func (f Format) String() string {
	if f.ColorFamily == ColorUndefined {
		return "Undefined"
	}
	st := "i"
	if f.SampleType == SampleFloat {
		st = "f"
	}
	return fmt.Sprintf("%s%s%d(ss %d/%d)", f.ColorFamily, st, f.BitsPerSample, f.SubSamplingW, f.SubSamplingH)
}

// BytesPerSample returns the storage size of one sample.
func (f Format) BytesPerSample() int { return (f.BitsPerSample + 7) / 8 }

// VideoInfo describes a clip.
type VideoInfo struct {
	Format    Format
	FPSNum    int64
	FPSDen    int64
	Width     int
	Height    int
	NumFrames int
}

// IsConstant reports whether the clip has a fixed format and fixed
// non-zero dimensions.
func (vi VideoInfo) IsConstant() bool {
	return vi.Format.ColorFamily != ColorUndefined && vi.Width > 0 && vi.Height > 0
}
