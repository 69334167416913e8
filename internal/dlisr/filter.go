// Package dlisr implements the DLISR filter: it opens one super-resolution
// stream per clip and runs every frame through the NGX feature.
package dlisr

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vsdlisr/internal/gpu"
	"vsdlisr/internal/ngx"
	"vsdlisr/internal/vs"
)

// FilterName is the name the filter is registered and reported under.
const FilterName = "DLISR"

// Env supplies the device and SDK a stream runs on.
type Env struct {
	Device gpu.Device
	Loader ngx.Loader
	NGX    ngx.Config
}

func (e Env) resolve() (Env, error) {
	if e.Device == nil {
		dev, err := gpu.Default()
		if err != nil {
			return e, setupError(msgDevice, ErrAllocate, err)
		}
		e.Device = dev
	}
	if e.Loader == nil {
		e.Loader = ngx.SDK{}
	}
	if e.NGX.EnginePath == "" {
		e.NGX.EnginePath = ngx.DefaultEnginePath
	}
	return e, nil
}

// Filter is one open stream. All device buffers and the feature handle are
// created by Open and released by Close.
type Filter struct {
	id   string
	cfg  StreamConfig
	vi   vs.VideoInfo
	node vs.Node
	dev  gpu.Device

	in      gpu.Buffer
	out     gpu.Buffer
	scratch gpu.Buffer
	feature ngx.Feature

	// mu guards the host staging buffers, the device buffers and the
	// feature from interleave to de-interleave of one frame.
	mu           sync.Mutex
	inHost       []byte
	outHost      []byte
	nodeReleased bool
	closeErr     error
	closed       atomic.Bool

	stats counters
}

// Create reads the filter arguments and opens a stream.
func Create(args vs.Map, env Env) (*Filter, error) {
	node, err := args.Node("clip")
	if err != nil {
		return nil, setupError(msgClip, ErrMissingClip, err)
	}
	scale, ok := vs.IntSaturated(args, "rfactor")
	if !ok {
		scale = DefaultScale
	}
	return Open(node, scale, env)
}

// Open validates the clip and acquires everything a stream needs. It takes
// ownership of node: on failure the node is released along with whatever
// was acquired before the failing step.
func Open(node vs.Node, scale int, env Env) (*Filter, error) {
	srcVI := node.VideoInfo()
	cfg, err := NewStreamConfig(srcVI, scale)
	if err != nil {
		node.Release()
		return nil, err
	}
	env, err = env.resolve()
	if err != nil {
		node.Release()
		return nil, err
	}

	f := &Filter{
		id:   uuid.NewString(),
		cfg:  cfg,
		vi:   cfg.DestVideoInfo(srcVI),
		node: node,
		dev:  env.Device,
	}
	log := logrus.WithFields(logrus.Fields{
		"function": "Open",
		"stream":   f.id,
		"device":   env.Device.Name(),
	})

	if err := f.acquire(env); err != nil {
		log.WithError(err).Error("Failed to open stream")
		f.release()
		return nil, err
	}
	f.inHost = make([]byte, cfg.SourceBytes())
	f.outHost = make([]byte, cfg.DestBytes())

	log.WithFields(logrus.Fields{
		"src":     [2]int{cfg.SourceWidth, cfg.SourceHeight},
		"dst":     [2]int{cfg.DestWidth(), cfg.DestHeight()},
		"scale":   cfg.Scale,
		"scratch": f.scratch.Size(),
	}).Info("Stream opened")
	return f, nil
}

func (f *Filter) acquire(env Env) error {
	var err error
	if f.in, err = f.dev.Allocate(int64(f.cfg.SourceBytes())); err != nil {
		return setupError(msgAllocIn, ErrAllocate, err)
	}
	if f.out, err = f.dev.Allocate(int64(f.cfg.DestBytes())); err != nil {
		return setupError(msgAllocOut, ErrAllocate, err)
	}

	if f.feature, err = env.Loader.Load(env.NGX); err != nil {
		return setupError(msgInit, ErrFeature, err)
	}
	ok, err := f.feature.Available()
	if err != nil {
		return setupError(msgAvailable, ErrFeatureUnavailable, err)
	}
	if !ok {
		return setupError(msgAvailable, ErrFeatureUnavailable, nil)
	}
	if err := f.setParams(); err != nil {
		return setupError(msgParams, ErrFeature, err)
	}

	need, err := f.feature.ScratchSize()
	if err != nil {
		return setupError(msgScratchSize, ErrFeature, err)
	}
	if f.scratch, err = f.dev.Allocate(gpu.ScratchAllocSize(need)); err != nil {
		return setupError(msgAllocScratch, ErrAllocate, err)
	}
	// the feature is told the size it asked for, not the clamped one
	if err := errors.Join(
		f.feature.SetPointer(ngx.ParamScratch, f.scratch.Ptr()),
		f.feature.SetUint(ngx.ParamScratchSize, need),
	); err != nil {
		return setupError(msgParams, ErrFeature, err)
	}

	if err := f.feature.Create(); err != nil {
		return setupError(msgCreate, ErrFeature, err)
	}
	return nil
}

func (f *Filter) setParams() error {
	p := f.feature
	return errors.Join(
		p.SetInt(ngx.ParamWidth, f.cfg.SourceWidth),
		p.SetInt(ngx.ParamHeight, f.cfg.SourceHeight),
		p.SetInt(ngx.ParamScale, f.cfg.Scale),
		p.SetUint(ngx.ParamColorSize, uint64(f.in.Size())),
		p.SetInt(ngx.ParamColorFormat, int(ngx.BufferFormatRGB8UI)),
		p.SetPointer(ngx.ParamColor, f.in.Ptr()),
		p.SetUint(ngx.ParamOutputSize, uint64(f.out.Size())),
		p.SetInt(ngx.ParamOutputFormat, int(ngx.BufferFormatRGB8UI)),
		p.SetPointer(ngx.ParamOutput, f.out.Ptr()),
	)
}

// release drops everything the filter holds. Each resource is released at
// most once.
func (f *Filter) release() error {
	var errs []error
	if f.feature != nil {
		errs = append(errs, f.feature.Destroy())
		f.feature = nil
	}
	for _, b := range []*gpu.Buffer{&f.scratch, &f.out, &f.in} {
		if *b != nil {
			errs = append(errs, (*b).Free())
			*b = nil
		}
	}
	if !f.nodeReleased {
		f.node.Release()
		f.nodeReleased = true
	}
	return errors.Join(errs...)
}

// Close releases the feature, the device buffers and the source node. It
// waits for an in-flight frame to finish. Later calls return the first
// call's result.
func (f *Filter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return f.closeErr
	}
	f.closed.Store(true)
	f.closeErr = f.release()

	logrus.WithFields(logrus.Fields{
		"function": "Close",
		"stream":   f.id,
		"frames":   f.stats.frames.Load(),
		"failed":   f.stats.failed.Load(),
	}).Info("Stream closed")
	return f.closeErr
}

// Free implements vs.Filter.
func (f *Filter) Free() {
	if err := f.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Free",
			"stream":   f.id,
		}).WithError(err).Warn("Errors while releasing stream")
	}
}

// ID returns the stream's unique identifier, used in log lines.
func (f *Filter) ID() string { return f.id }

// Config returns the stream geometry.
func (f *Filter) Config() StreamConfig { return f.cfg }

// VideoInfo returns the output clip description.
func (f *Filter) VideoInfo() vs.VideoInfo { return f.vi }

// Mode implements vs.Filter. Frames may run concurrently; the device
// section is serialised by the stream lock.
func (f *Filter) Mode() vs.FilterMode { return vs.ModeParallel }

// Dependencies implements vs.Filter: output frame n needs source frame n
// and nothing else.
func (f *Filter) Dependencies() []vs.Dependency {
	return []vs.Dependency{{Node: f.node, Pattern: vs.PatternStrictSpatial}}
}

// Closed reports whether Close has been called.
func (f *Filter) Closed() bool { return f.closed.Load() }

var _ vs.Filter = (*Filter)(nil)

type counters struct {
	frames atomic.Uint64
	failed atomic.Uint64
	evalNs atomic.Int64
}
