package dlisr

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsdlisr/internal/gpu"
	"vsdlisr/internal/ngx"
	"vsdlisr/internal/ngx/ngxtest"
	"vsdlisr/internal/vs"
)

type rig struct {
	dev     *gpu.HostDevice
	feature *ngxtest.Feature
	loader  *ngxtest.Loader
}

func newRig() *rig {
	dev := gpu.NewHostDevice()
	feat := ngxtest.NewFeature(dev)
	return &rig{dev: dev, feature: feat, loader: &ngxtest.Loader{Feature: feat}}
}

func (r *rig) env() Env {
	return Env{Device: r.dev, Loader: r.loader}
}

func TestCreate_DefaultScale(t *testing.T) {
	r := newRig()
	node := newTestNode(16, 9)

	f, err := Create(vs.Args{"clip": node}, r.env())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, DefaultScale, f.Config().Scale)
	assert.Equal(t, 32, f.VideoInfo().Width)
	assert.Equal(t, 18, f.VideoInfo().Height)
	assert.Equal(t, vs.RGB24, f.VideoInfo().Format)
	assert.Equal(t, 100, f.VideoInfo().NumFrames)
	assert.NotEmpty(t, f.ID())

	loads := r.loader.Loads()
	require.Len(t, loads, 1)
	assert.Equal(t, ngx.DefaultEnginePath, loads[0].EnginePath)
	assert.Zero(t, loads[0].AppID)
}

func TestCreate_ExplicitScale(t *testing.T) {
	r := newRig()
	f, err := Create(vs.Args{"clip": newTestNode(10, 4), "rfactor": 4}, r.env())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 40, f.VideoInfo().Width)
	assert.Equal(t, 16, f.VideoInfo().Height)
	assert.Equal(t, []int64{10 * 4 * 3, 40 * 16 * 3, 1}, r.dev.Allocations())
}

func TestCreate_MissingClip(t *testing.T) {
	r := newRig()
	_, err := Create(vs.Args{"rfactor": 2}, r.env())

	require.Error(t, err)
	assert.True(t, IsSetup(err))
	assert.ErrorIs(t, err, ErrMissingClip)
	assert.ErrorIs(t, err, vs.ErrKeyMissing)
	assert.Empty(t, r.dev.Allocations())
}

func TestCreate_SaturatedScale(t *testing.T) {
	r := newRig()
	node := newTestNode(4, 4)
	_, err := Create(vs.Args{"clip": node, "rfactor": int64(math.MaxInt64)}, r.env())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidScale)
	assert.Contains(t, err.Error(), "x2147483647")
	assert.Empty(t, r.dev.Allocations())
	assert.Equal(t, int32(1), node.released.Load())
}

func TestOpen_RejectsBeforeAllocating(t *testing.T) {
	cases := []struct {
		name  string
		vi    vs.VideoInfo
		scale int
		want  error
	}{
		{"yuv", vs.VideoInfo{Format: vs.YUV420P8, Width: 8, Height: 8}, 2, ErrUnsupportedFormat},
		{"16 bit", vs.VideoInfo{Format: vs.RGB48, Width: 8, Height: 8}, 2, ErrUnsupportedFormat},
		{"float", vs.VideoInfo{Format: vs.RGBS, Width: 8, Height: 8}, 2, ErrUnsupportedFormat},
		{"gray", vs.VideoInfo{Format: vs.Gray8, Width: 8, Height: 8}, 2, ErrUnsupportedFormat},
		{"variable format", vs.VideoInfo{Format: vs.NoFormat, Width: 8, Height: 8}, 2, ErrVariableFormat},
		{"variable size", vs.VideoInfo{Format: vs.RGB24}, 2, ErrVariableFormat},
		{"zero scale", vs.VideoInfo{Format: vs.RGB24, Width: 8, Height: 8}, 0, ErrInvalidScale},
		{"negative scale", vs.VideoInfo{Format: vs.RGB24, Width: 8, Height: 8}, -3, ErrInvalidScale},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig()
			node := &testNode{vi: tc.vi}

			f, err := Open(node, tc.scale, r.env())

			assert.Nil(t, f)
			require.Error(t, err)
			assert.True(t, IsSetup(err))
			assert.False(t, IsFrame(err))
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, r.dev.Allocations())
			assert.Empty(t, r.loader.Loads())
			assert.Equal(t, int32(1), node.released.Load())
		})
	}
}

func TestOpen_FormatMessage(t *testing.T) {
	r := newRig()
	_, err := Open(&testNode{vi: vs.VideoInfo{Format: vs.YUV444P8, Width: 2, Height: 2}}, 2, r.env())
	require.Error(t, err)

	msg := vs.PrefixError(FilterName, err)
	assert.True(t, strings.HasPrefix(msg, "DLISR: only constant format 8 bit integer RGB supported"), msg)
}

func TestOpen_AllocationFailureUnwinds(t *testing.T) {
	cases := []struct {
		name    string
		at      int
		msg     string
		loaded  bool
		destroy int
	}{
		{"input", 1, "Error allocating input image CUDA buffer", false, 0},
		{"output", 2, "Error allocating output image CUDA buffer", false, 0},
		{"scratch", 3, "Error allocating scratch CUDA buffer", true, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig()
			r.dev.FailAllocAt(tc.at)
			node := newTestNode(8, 6)

			_, err := Open(node, 2, r.env())

			require.Error(t, err)
			assert.True(t, IsSetup(err))
			assert.ErrorIs(t, err, ErrAllocate)
			assert.ErrorIs(t, err, gpu.ErrInjected)
			assert.Contains(t, err.Error(), tc.msg)

			assert.Len(t, r.dev.Allocations(), tc.at, "no allocation after the failing one")
			assert.Zero(t, r.dev.Live(), "everything allocated was freed")
			assert.Equal(t, tc.at-1, r.dev.Frees())
			assert.Equal(t, tc.loaded, len(r.loader.Loads()) == 1)
			assert.Equal(t, tc.destroy, r.feature.Destroyed())
			assert.Zero(t, r.feature.Created())
			assert.Equal(t, int32(1), node.released.Load())
		})
	}
}

func TestOpen_FeatureFailureUnwinds(t *testing.T) {
	cases := []struct {
		name  string
		setup func(r *rig)
		want  error
		msg   string
	}{
		{"unavailable", func(r *rig) { r.feature.Unavailable = true }, ErrFeatureUnavailable,
			"NVSDK_NGX_Feature_ImageSuperResolution Unavailable on this System"},
		{"availability query", func(r *rig) { r.feature.Fail = map[string]bool{"available": true} }, ErrFeatureUnavailable,
			"Unavailable on this System"},
		{"scratch size", func(r *rig) { r.feature.Fail = map[string]bool{"scratch": true} }, ErrFeature,
			"Error Getting NGX Scratch Buffer Size"},
		{"create", func(r *rig) { r.feature.Fail = map[string]bool{"create": true} }, ErrFeature,
			"Error creating NGX feature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig()
			tc.setup(r)
			node := newTestNode(4, 4)

			_, err := Open(node, 2, r.env())

			require.Error(t, err)
			assert.True(t, IsSetup(err))
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), tc.msg)
			assert.Zero(t, r.dev.Live())
			assert.Equal(t, 1, r.feature.Destroyed())
			assert.Equal(t, int32(1), node.released.Load())
		})
	}
}

func TestOpen_LoaderFailure(t *testing.T) {
	r := newRig()
	r.loader.Err = ngx.ErrUnavailable
	node := newTestNode(4, 4)

	_, err := Open(node, 2, r.env())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeature)
	assert.ErrorIs(t, err, ngx.ErrUnavailable)
	assert.Contains(t, err.Error(), "Error Initializing NGX")
	assert.Len(t, r.dev.Allocations(), 2)
	assert.Zero(t, r.dev.Live())
	assert.Zero(t, r.feature.Destroyed())
	assert.Equal(t, int32(1), node.released.Load())
}

func TestOpen_SetsFeatureParameters(t *testing.T) {
	r := newRig()
	r.feature.Scratch = 4096

	f, err := Open(newTestNode(12, 5), 3, r.env())
	require.NoError(t, err)
	defer f.Close()

	ints := map[ngx.Param]int{
		ngx.ParamWidth:        12,
		ngx.ParamHeight:       5,
		ngx.ParamScale:        3,
		ngx.ParamColorFormat:  int(ngx.BufferFormatRGB8UI),
		ngx.ParamOutputFormat: int(ngx.BufferFormatRGB8UI),
	}
	for p, want := range ints {
		got, ok := r.feature.Int(p)
		assert.True(t, ok, p)
		assert.Equal(t, want, got, p)
	}

	uints := map[ngx.Param]uint64{
		ngx.ParamColorSize:   12 * 5 * 3,
		ngx.ParamOutputSize:  36 * 15 * 3,
		ngx.ParamScratchSize: 4096,
	}
	for p, want := range uints {
		got, ok := r.feature.Uint(p)
		assert.True(t, ok, p)
		assert.Equal(t, want, got, p)
	}

	for p, size := range map[ngx.Param]int{ngx.ParamColor: 12 * 5 * 3, ngx.ParamOutput: 36 * 15 * 3, ngx.ParamScratch: 4096} {
		ptr, ok := r.feature.Pointer(p)
		require.True(t, ok, p)
		mem, ok := r.dev.Bytes(ptr)
		require.True(t, ok, p)
		assert.Len(t, mem, size, p)
	}

	assert.Equal(t, 1, r.feature.Created())
	assert.Equal(t, 3, r.dev.Live())
}

func TestOpen_ZeroScratchClampedToOneByte(t *testing.T) {
	r := newRig()
	r.feature.Scratch = 0

	f, err := Open(newTestNode(4, 4), 2, r.env())
	require.NoError(t, err)
	defer f.Close()

	allocs := r.dev.Allocations()
	require.Len(t, allocs, 3)
	assert.Equal(t, int64(1), allocs[2])

	size, ok := r.feature.Uint(ngx.ParamScratchSize)
	require.True(t, ok)
	assert.Zero(t, size, "feature sees the size it asked for")
}

func TestClose_Idempotent(t *testing.T) {
	r := newRig()
	node := newTestNode(4, 4)
	f, err := Open(node, 2, r.env())
	require.NoError(t, err)

	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
	assert.Zero(t, r.dev.Live())
	assert.Equal(t, 3, r.dev.Frees())
	assert.Equal(t, 1, r.feature.Destroyed())
	assert.Equal(t, int32(1), node.released.Load())

	require.NoError(t, f.Close())
	f.Free()
	assert.Equal(t, 3, r.dev.Frees())
	assert.Equal(t, 1, r.feature.Destroyed())
	assert.Equal(t, int32(1), node.released.Load())
}

func TestClose_ReportsDestroyError(t *testing.T) {
	r := newRig()
	r.feature.Fail = map[string]bool{"destroy": true}
	f, err := Open(newTestNode(4, 4), 2, r.env())
	require.NoError(t, err)

	err = f.Close()
	assert.ErrorIs(t, err, ngxtest.ErrFake)
	assert.Zero(t, r.dev.Live(), "buffers are freed even when destroy fails")
	assert.ErrorIs(t, f.Close(), ngxtest.ErrFake)
}

func TestEnv_ResolveDefaults(t *testing.T) {
	dev := gpu.NewHostDevice()
	env, err := Env{Device: dev}.resolve()
	require.NoError(t, err)
	assert.Equal(t, ngx.DefaultEnginePath, env.NGX.EnginePath)
	assert.IsType(t, ngx.SDK{}, env.Loader)

	env, err = Env{Device: dev, NGX: ngx.Config{EnginePath: "/opt/ngx"}}.resolve()
	require.NoError(t, err)
	assert.Equal(t, "/opt/ngx", env.NGX.EnginePath)
}
