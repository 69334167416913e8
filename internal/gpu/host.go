package gpu

import (
	"errors"
	"fmt"
	"sync"
)

// hostBase is the first address handed out by HostDevice. Addresses are
// fake but stable, unique and non-zero so they can flow through vendor
// parameter blocks the same way device pointers do.
const hostBase uintptr = 0x10000

// ErrInjected is returned by HostDevice when a failure was requested.
var ErrInjected = errors.New("injected device failure")

// HostDevice keeps "device" buffers in Go memory. It backs tests and
// machines without CUDA, and records allocations so callers can check that
// everything allocated was freed.
type HostDevice struct {
	mu     sync.Mutex
	next   uintptr
	live   map[uintptr]*hostBuffer
	allocs int
	frees  int
	syncs  int
	sizes  []int64

	failAllocAt int
	failCopyIn  bool
	failCopyOut bool
}

// NewHostDevice creates an empty host device.
func NewHostDevice() *HostDevice {
	return &HostDevice{next: hostBase, live: make(map[uintptr]*hostBuffer)}
}

func (d *HostDevice) Name() string { return "host" }

// FailAllocAt makes the n-th allocation (1-based, counted from now on
// including earlier ones) fail. Zero disables injection.
func (d *HostDevice) FailAllocAt(n int) {
	d.mu.Lock()
	d.failAllocAt = n
	d.mu.Unlock()
}

// FailCopies makes subsequent host->device and/or device->host copies fail.
func (d *HostDevice) FailCopies(in, out bool) {
	d.mu.Lock()
	d.failCopyIn, d.failCopyOut = in, out
	d.mu.Unlock()
}

func (d *HostDevice) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("allocate %d bytes: %w", size, ErrZeroSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocs++
	d.sizes = append(d.sizes, size)
	if d.failAllocAt > 0 && d.allocs == d.failAllocAt {
		return nil, fmt.Errorf("allocate %d bytes: %w", size, ErrInjected)
	}
	b := &hostBuffer{dev: d, ptr: d.next, data: make([]byte, size)}
	// keep addresses 256-byte aligned like cudaMalloc
	d.next += uintptr((size + 255) &^ 255)
	d.live[b.ptr] = b
	return b, nil
}

func (d *HostDevice) Sync() error {
	d.mu.Lock()
	d.syncs++
	d.mu.Unlock()
	return nil
}

// Bytes returns the backing memory of the live buffer at ptr.
func (d *HostDevice) Bytes(ptr uintptr) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.live[ptr]
	if !ok {
		return nil, false
	}
	return b.data, true
}

// Live returns the number of buffers allocated and not yet freed.
func (d *HostDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// Allocations returns the requested sizes of every allocation attempt, in order.
func (d *HostDevice) Allocations() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int64, len(d.sizes))
	copy(out, d.sizes)
	return out
}

// Frees returns how many buffers have been released.
func (d *HostDevice) Frees() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frees
}

// Syncs returns how many times Sync was called.
func (d *HostDevice) Syncs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syncs
}

type hostBuffer struct {
	dev  *HostDevice
	ptr  uintptr
	data []byte
}

func (b *hostBuffer) Size() int64  { return int64(len(b.data)) }
func (b *hostBuffer) Ptr() uintptr { return b.ptr }

func (b *hostBuffer) CopyFromHost(src []byte) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.data == nil {
		return ErrFreed
	}
	if b.dev.failCopyIn {
		return fmt.Errorf("copy to device: %w", ErrInjected)
	}
	if len(src) > len(b.data) {
		return fmt.Errorf("buffer too small: %d < %d", len(b.data), len(src))
	}
	copy(b.data, src)
	return nil
}

func (b *hostBuffer) CopyToHost(dst []byte) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.data == nil {
		return ErrFreed
	}
	if b.dev.failCopyOut {
		return fmt.Errorf("copy from device: %w", ErrInjected)
	}
	if len(dst) > len(b.data) {
		return fmt.Errorf("read of %d bytes exceeds buffer size %d", len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (b *hostBuffer) Free() error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.data == nil {
		return nil
	}
	delete(b.dev.live, b.ptr)
	b.dev.frees++
	b.data = nil
	return nil
}
