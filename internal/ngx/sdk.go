//go:build cgo && ngx

package ngx

/*
#cgo CXXFLAGS: -std=c++17 -I/usr/local/ngx/include -I${SRCDIR}/../../third_party/ngx/include
#cgo LDFLAGS: -L/usr/local/ngx/lib -L${SRCDIR}/../../third_party/ngx/lib -lnvsdk_ngx_s -L/usr/local/cuda/lib64 -lcuda -lcudart -lstdc++ -ldl
#include <stdlib.h>
#include "shim.h"
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

const opCapabilityParams = "NVSDK_NGX_CUDA_GetCapabilityParameters"

var (
	initOnce sync.Once
	initErr  error
)

// SDK is the vendor-backed Loader.
type SDK struct{}

// Load initialises the SDK on first use and fetches a capability parameter
// block for a new stream. The block carries the availability entries the
// stream checks before it sets its own parameters.
func (SDK) Load(cfg Config) (Feature, error) {
	initOnce.Do(func() {
		path := cfg.EnginePath
		if path == "" {
			path = DefaultEnginePath
		}
		cpath := C.CString(path)
		defer C.free(unsafe.Pointer(cpath))
		initErr = check("NVSDK_NGX_CUDA_Init", Result(C.ngx_init(C.ulonglong(cfg.AppID), cpath)))
	})
	if initErr != nil {
		return nil, fmt.Errorf("initializing NGX: %w", initErr)
	}
	var params C.ngx_params
	if err := check(opCapabilityParams, Result(C.ngx_get_capability_parameters(&params))); err != nil {
		return nil, err
	}
	return &sdkFeature{params: params}, nil
}

type sdkFeature struct {
	mu     sync.Mutex
	params C.ngx_params
	handle C.ngx_handle
}

func withName(name Param, fn func(*C.char)) {
	cname := C.CString(string(name))
	defer C.free(unsafe.Pointer(cname))
	fn(cname)
}

func (f *sdkFeature) Available() (bool, error) {
	var v C.int
	var err error
	withName(ParamAvailable, func(n *C.char) {
		err = check("Parameter.Get("+string(ParamAvailable)+")", Result(C.ngx_get_i(f.params, n, &v)))
	})
	return v != 0, err
}

func (f *sdkFeature) SetInt(name Param, v int) error {
	if name == ParamColorFormat || name == ParamOutputFormat {
		v = vendorFormat(BufferFormat(v))
	}
	withName(name, func(n *C.char) { C.ngx_set_i(f.params, n, C.int(v)) })
	return nil
}

func (f *sdkFeature) SetUint(name Param, v uint64) error {
	withName(name, func(n *C.char) { C.ngx_set_ull(f.params, n, C.ulonglong(v)) })
	return nil
}

func (f *sdkFeature) SetPointer(name Param, ptr uintptr) error {
	// ptr is a device address from cudaMalloc, never Go memory.
	withName(name, func(n *C.char) { C.ngx_set_ptr(f.params, n, unsafe.Pointer(ptr)) })
	return nil
}

func (f *sdkFeature) ScratchSize() (uint64, error) {
	var size C.size_t
	if err := check("NVSDK_NGX_CUDA_GetScratchBufferSize", Result(C.ngx_scratch_size(f.params, &size))); err != nil {
		return 0, err
	}
	return uint64(size), nil
}

func (f *sdkFeature) Create() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var h C.ngx_handle
	if err := check("NVSDK_NGX_CUDA_CreateFeature", Result(C.ngx_create_isr(f.params, &h))); err != nil {
		return err
	}
	f.handle = h
	return nil
}

func (f *sdkFeature) Evaluate() error {
	return check("NVSDK_NGX_CUDA_EvaluateFeature", Result(C.ngx_evaluate(f.handle, f.params)))
}

func (f *sdkFeature) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	if f.handle != nil {
		firstErr = check("NVSDK_NGX_CUDA_ReleaseFeature", Result(C.ngx_release(f.handle)))
		f.handle = nil
	}
	if f.params != nil {
		if err := check("NVSDK_NGX_CUDA_DestroyParameters", Result(C.ngx_destroy_parameters(f.params))); err != nil && firstErr == nil {
			firstErr = err
		}
		f.params = nil
	}
	return firstErr
}

func vendorFormat(f BufferFormat) int {
	if f == BufferFormatRGB8UI {
		return int(C.ngx_format_rgb8ui())
	}
	return int(f)
}
