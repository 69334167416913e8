//go:build !linux || !cgo || !cuda

package gpu

import "errors"

// ErrNoCUDA is returned when the binary was built without CUDA support.
var ErrNoCUDA = errors.New("CUDA support requires Linux with cgo (build with: go build -tags cuda)")

// CUDADevice stub for builds without CUDA.
type CUDADevice struct{}

// NewCUDADevice returns ErrNoCUDA on unsupported builds.
func NewCUDADevice() (*CUDADevice, error) { return nil, ErrNoCUDA }

func (d *CUDADevice) Name() string                        { return "CUDA (unavailable)" }
func (d *CUDADevice) Allocate(size int64) (Buffer, error) { return nil, ErrNoCUDA }
func (d *CUDADevice) Sync() error                         { return ErrNoCUDA }
