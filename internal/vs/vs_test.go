package vs

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNode struct{ vi VideoInfo }

func (n *stubNode) VideoInfo() VideoInfo { return n.vi }
func (n *stubNode) Release()             {}

func TestVideoInfo_IsConstant(t *testing.T) {
	assert.True(t, VideoInfo{Format: RGB24, Width: 4, Height: 4}.IsConstant())
	assert.False(t, VideoInfo{Format: NoFormat, Width: 4, Height: 4}.IsConstant())
	assert.False(t, VideoInfo{Format: RGB24, Width: 0, Height: 4}.IsConstant())
	assert.False(t, VideoInfo{Format: RGB24, Width: 4}.IsConstant())
}

func TestNewFrame_PlaneSizes(t *testing.T) {
	f := NewFrame(YUV420P8, 8, 4)
	assert.Len(t, f.Planes[0], 32)
	assert.Len(t, f.Planes[1], 8)
	assert.Len(t, f.Planes[2], 8)
	assert.Equal(t, [MaxPlanes]int{8, 4, 4}, f.Strides)

	g := NewFrame(RGB48, 3, 2)
	assert.Len(t, g.Planes[2], 12)
	assert.Equal(t, 6, g.Strides[1])
}

func TestFrame_RGB(t *testing.T) {
	f := NewFrame(RGB24, 5, 3)
	f.Planes[1][7] = 42

	p := f.RGB()
	assert.Equal(t, 5, p.Width)
	assert.Equal(t, 3, p.Height)
	assert.Equal(t, 5, p.Stride)
	assert.Equal(t, byte(42), p.Planes[1][7])
}

func TestIntSaturated(t *testing.T) {
	args := Args{"big": int64(math.MaxInt64), "small": int64(math.MinInt64), "two": 2}

	v, ok := IntSaturated(args, "big")
	assert.True(t, ok)
	assert.Equal(t, math.MaxInt32, v)

	v, ok = IntSaturated(args, "small")
	assert.True(t, ok)
	assert.Equal(t, math.MinInt32, v)

	v, ok = IntSaturated(args, "two")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = IntSaturated(args, "missing")
	assert.False(t, ok)
}

func TestArgs_Node(t *testing.T) {
	n := &stubNode{vi: VideoInfo{Format: RGB24, Width: 1, Height: 1}}
	args := Args{"clip": n, "rfactor": 3}

	got, err := args.Node("clip")
	require.NoError(t, err)
	assert.Same(t, n, got)

	_, err = args.Node("missing")
	assert.ErrorIs(t, err, ErrKeyMissing)

	_, err = args.Node("rfactor")
	assert.Error(t, err)
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "RGBi8(ss 0/0)", RGB24.String())
	assert.Equal(t, "YUVi8(ss 1/1)", YUV420P8.String())
	assert.Equal(t, "Undefined", NoFormat.String())
}

func TestMakeVersion(t *testing.T) {
	assert.Equal(t, 0x10000, MakeVersion(1, 0))
	assert.Equal(t, 0x40001, MakeVersion(4, 1))
	assert.Equal(t, 0x40000, APIVersion)
}

func TestDependency_Allows(t *testing.T) {
	strict := Dependency{Pattern: PatternStrictSpatial}
	assert.True(t, strict.Allows(5, 5))
	assert.False(t, strict.Allows(5, 4))

	general := Dependency{Pattern: PatternGeneral}
	assert.True(t, general.Allows(5, 4))
}

func TestPrefixError(t *testing.T) {
	assert.Equal(t, "DLISR: boom", PrefixError("DLISR", errors.New("boom")))
	assert.Equal(t, "DLISR: "+assert.AnError.Error(), PrefixError("DLISR", assert.AnError))
}
