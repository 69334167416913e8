//go:build linux && cgo && cuda

package gpu

/*
#cgo CFLAGS: -I/opt/cuda/include -I/usr/local/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L/usr/local/cuda/lib64 -lcudart

#include <cuda_runtime.h>
#include <stdlib.h>

static const char* cudaErrString(cudaError_t err) {
    return cudaGetErrorString(err);
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

// CUDADevice allocates and copies through the CUDA runtime on device 0.
type CUDADevice struct {
	deviceID int
	name     string
}

var (
	cudaOnce sync.Once
	cudaDev  *CUDADevice
	cudaErr  error
)

// NewCUDADevice returns the process-wide CUDA device, initialising it on first use.
func NewCUDADevice() (*CUDADevice, error) {
	cudaOnce.Do(func() {
		cudaDev, cudaErr = initCUDADevice()
	})
	return cudaDev, cudaErr
}

func initCUDADevice() (*CUDADevice, error) {
	var count C.int
	if err := C.cudaGetDeviceCount(&count); err != C.cudaSuccess {
		return nil, fmt.Errorf("CUDA not available: %s", C.GoString(C.cudaErrString(err)))
	}
	if count == 0 {
		return nil, fmt.Errorf("no CUDA devices found")
	}
	if err := C.cudaSetDevice(0); err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to set CUDA device 0: %s", C.GoString(C.cudaErrString(err)))
	}
	var props C.struct_cudaDeviceProp
	if err := C.cudaGetDeviceProperties(&props, 0); err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to get device properties: %s", C.GoString(C.cudaErrString(err)))
	}
	return &CUDADevice{deviceID: 0, name: C.GoString(&props.name[0])}, nil
}

func (d *CUDADevice) Name() string { return d.name }

func (d *CUDADevice) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("allocate %d bytes: %w", size, ErrZeroSize)
	}
	var ptr unsafe.Pointer
	if err := C.cudaMalloc(&ptr, C.size_t(size)); err != C.cudaSuccess {
		return nil, fmt.Errorf("cudaMalloc(%d): %s", size, C.GoString(C.cudaErrString(err)))
	}
	return &cudaBuffer{ptr: ptr, size: size}, nil
}

func (d *CUDADevice) Sync() error {
	if err := C.cudaDeviceSynchronize(); err != C.cudaSuccess {
		return fmt.Errorf("cudaDeviceSynchronize: %s", C.GoString(C.cudaErrString(err)))
	}
	return nil
}

type cudaBuffer struct {
	mu   sync.Mutex
	ptr  unsafe.Pointer
	size int64
}

func (b *cudaBuffer) Size() int64 { return b.size }

func (b *cudaBuffer) Ptr() uintptr {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uintptr(b.ptr)
}

func (b *cudaBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ptr == nil {
		return ErrFreed
	}
	if int64(len(src)) > b.size {
		return fmt.Errorf("buffer too small: %d < %d", b.size, len(src))
	}
	if len(src) == 0 {
		return nil
	}
	err := C.cudaMemcpy(b.ptr, unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice)
	if err != C.cudaSuccess {
		return fmt.Errorf("cudaMemcpy host->device: %s", C.GoString(C.cudaErrString(err)))
	}
	return nil
}

func (b *cudaBuffer) CopyToHost(dst []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ptr == nil {
		return ErrFreed
	}
	if int64(len(dst)) > b.size {
		return fmt.Errorf("read of %d bytes exceeds buffer size %d", len(dst), b.size)
	}
	if len(dst) == 0 {
		return nil
	}
	err := C.cudaMemcpy(unsafe.Pointer(&dst[0]), b.ptr, C.size_t(len(dst)), C.cudaMemcpyDeviceToHost)
	if err != C.cudaSuccess {
		return fmt.Errorf("cudaMemcpy device->host: %s", C.GoString(C.cudaErrString(err)))
	}
	return nil
}

func (b *cudaBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ptr == nil {
		return nil
	}
	err := C.cudaFree(b.ptr)
	b.ptr = nil
	if err != C.cudaSuccess {
		return fmt.Errorf("cudaFree: %s", C.GoString(C.cudaErrString(err)))
	}
	return nil
}
