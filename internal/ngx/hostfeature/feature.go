// Package hostfeature runs a stand-in for the NGX super-resolution feature
// on a gpu.HostDevice, for machines without the SDK.
//
// Evaluate replicates each source pixel into a Scale x Scale block. The
// result is a plain nearest-neighbour upscale, good enough to preview the
// pipeline end to end.
package hostfeature

import (
	"fmt"
	"sync"

	"vsdlisr/internal/gpu"
	"vsdlisr/internal/ngx"
)

// Feature is an ngx.Feature that reads and writes HostDevice buffers.
type Feature struct {
	dev *gpu.HostDevice

	mu    sync.Mutex
	ints  map[ngx.Param]int
	uints map[ngx.Param]uint64
	ptrs  map[ngx.Param]uintptr
}

// New returns a feature bound to dev.
func New(dev *gpu.HostDevice) *Feature {
	return &Feature{
		dev:   dev,
		ints:  make(map[ngx.Param]int),
		uints: make(map[ngx.Param]uint64),
		ptrs:  make(map[ngx.Param]uintptr),
	}
}

// Device returns the device the feature reads and writes.
func (f *Feature) Device() *gpu.HostDevice { return f.dev }

// Available is always true.
func (f *Feature) Available() (bool, error) { return true, nil }

func (f *Feature) SetInt(name ngx.Param, v int) error {
	f.mu.Lock()
	f.ints[name] = v
	f.mu.Unlock()
	return nil
}

func (f *Feature) SetUint(name ngx.Param, v uint64) error {
	f.mu.Lock()
	f.uints[name] = v
	f.mu.Unlock()
	return nil
}

func (f *Feature) SetPointer(name ngx.Param, ptr uintptr) error {
	f.mu.Lock()
	f.ptrs[name] = ptr
	f.mu.Unlock()
	return nil
}

// Int returns an integer parameter previously set.
func (f *Feature) Int(name ngx.Param) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.ints[name]
	return v, ok
}

// Uint returns an unsigned parameter previously set.
func (f *Feature) Uint(name ngx.Param) (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.uints[name]
	return v, ok
}

// Pointer returns a pointer parameter previously set.
func (f *Feature) Pointer(name ngx.Param) (uintptr, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.ptrs[name]
	return v, ok
}

// ScratchSize is always zero; the upscale needs no scratch memory.
func (f *Feature) ScratchSize() (uint64, error) { return 0, nil }

func (f *Feature) Create() error { return nil }

// Evaluate upscales the Color buffer into the Output buffer.
func (f *Feature) Evaluate() error {
	f.mu.Lock()
	w, h, s := f.ints[ngx.ParamWidth], f.ints[ngx.ParamHeight], f.ints[ngx.ParamScale]
	inPtr, outPtr := f.ptrs[ngx.ParamColor], f.ptrs[ngx.ParamOutput]
	f.mu.Unlock()

	in, ok := f.dev.Bytes(inPtr)
	if !ok {
		return fmt.Errorf("evaluate: no input buffer at 0x%x", inPtr)
	}
	out, ok := f.dev.Bytes(outPtr)
	if !ok {
		return fmt.Errorf("evaluate: no output buffer at 0x%x", outPtr)
	}
	if s < 1 {
		return fmt.Errorf("evaluate: scale %d", s)
	}
	dw, dh := w*s, h*s
	if len(in) < w*h*3 || len(out) < dw*dh*3 {
		return fmt.Errorf("evaluate: buffers too small for %dx%d x%d", w, h, s)
	}
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			src := ((y/s)*w + x/s) * 3
			dst := (y*dw + x) * 3
			copy(out[dst:dst+3], in[src:src+3])
		}
	}
	return nil
}

func (f *Feature) Destroy() error { return nil }

// Loader hands out a fresh Feature per stream, all on the same device.
type Loader struct {
	Dev *gpu.HostDevice
}

func (l Loader) Load(ngx.Config) (ngx.Feature, error) {
	return New(l.Dev), nil
}

var (
	_ ngx.Feature = (*Feature)(nil)
	_ ngx.Loader  = Loader{}
)
