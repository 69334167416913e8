// Package gpu manages fixed-size device memory regions and host<->device copies.
package gpu

import "errors"

// Device is a compute device that can hold frame buffers.
type Device interface {
	// Name returns a human-readable device name.
	Name() string

	// Allocate reserves size bytes of device memory.
	Allocate(size int64) (Buffer, error)

	// Sync waits for all pending device work to complete.
	Sync() error
}

// Buffer is a device-resident memory region of fixed size.
type Buffer interface {
	// Size returns the size of the buffer in bytes.
	Size() int64

	// Ptr returns the device address handed to vendor APIs.
	Ptr() uintptr

	// CopyFromHost copies src into the start of the buffer.
	CopyFromHost(src []byte) error

	// CopyToHost copies the start of the buffer into dst, len(dst) bytes.
	CopyToHost(dst []byte) error

	// Free releases the buffer. Calling Free more than once is a no-op.
	Free() error
}

var (
	// ErrZeroSize is returned for zero or negative allocation requests.
	ErrZeroSize = errors.New("zero-size device allocation")

	// ErrFreed indicates use of a buffer after Free.
	ErrFreed = errors.New("device buffer already freed")
)

// ScratchAllocSize returns the allocation size for a vendor scratch region.
// Device allocators reject zero-byte requests, so a zero requirement is
// rounded up to one byte.
func ScratchAllocSize(required uint64) int64 {
	if required == 0 {
		return 1
	}
	return int64(required)
}

// Default returns the CUDA device when the build and machine support it.
func Default() (Device, error) {
	dev, err := NewCUDADevice()
	if err != nil {
		return nil, err
	}
	return dev, nil
}
