// Package ngx wraps the NGX image super-resolution feature behind a narrow
// capability interface.
//
// The real binding (build tag "ngx", cgo) links the vendor SDK through a
// small C++ shim. Without the tag every Load fails with ErrUnavailable, and
// callers without the SDK use package hostfeature.
package ngx

import (
	"errors"
	"fmt"
)

// Param names a slot in the feature's parameter block.
type Param string

// Parameter names understood by the image super-resolution feature.
const (
	ParamAvailable    Param = "ImageSuperResolution.Available"
	ParamWidth        Param = "Width"
	ParamHeight       Param = "Height"
	ParamScale        Param = "Scale"
	ParamColor        Param = "Color"
	ParamColorSize    Param = "Color.SizeInBytes"
	ParamColorFormat  Param = "Color.Format"
	ParamOutput       Param = "Output"
	ParamOutputSize   Param = "Output.SizeInBytes"
	ParamOutputFormat Param = "Output.Format"
	ParamScratch      Param = "Scratch"
	ParamScratchSize  Param = "Scratch.SizeInBytes"
)

// BufferFormat tags the pixel layout of an input or output buffer.
type BufferFormat int

const (
	BufferFormatUnknown BufferFormat = iota
	// BufferFormatRGB8UI is interleaved 8-bit unsigned RGB.
	BufferFormatRGB8UI
)

// DefaultEnginePath is the engine search path used when none is configured.
const DefaultEnginePath = "./"

// Config selects how the SDK is initialised. The SDK is initialised once per
// process; later loads reuse the first successful initialisation.
type Config struct {
	AppID      uint64
	EnginePath string
}

// Feature is one stream's view of the super-resolution feature: its own
// parameter block and, once created, its own feature handle.
type Feature interface {
	// Available reports whether the feature can run on this system.
	Available() (bool, error)

	SetInt(name Param, v int) error
	SetUint(name Param, v uint64) error
	SetPointer(name Param, ptr uintptr) error

	// ScratchSize returns the scratch bytes the feature needs for the
	// parameters set so far. Zero is a valid answer.
	ScratchSize() (uint64, error)

	// Create instantiates the feature from the parameter block.
	Create() error

	// Evaluate runs the feature once on the configured buffers.
	Evaluate() error

	// Destroy releases the feature handle and the parameter block.
	// Calling Destroy more than once is a no-op.
	Destroy() error
}

// Loader initialises the SDK and hands out per-stream features.
type Loader interface {
	Load(cfg Config) (Feature, error)
}

// ErrUnavailable is returned when the binary was built without the SDK.
var ErrUnavailable = errors.New("NGX support not compiled in (build with: go build -tags ngx)")

// Result is a raw NGX result code.
type Result uint32

const (
	ResultSuccess Result = 0x1
	resultFail    Result = 0xBAD00000
)

// Failed reports whether r carries the SDK failure prefix.
func (r Result) Failed() bool { return r&0xFFF00000 == resultFail }

// ResultError reports a failing SDK call.
type ResultError struct {
	Op   string
	Code Result
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s failed: NGX result 0x%08X", e.Op, uint32(e.Code))
}

func check(op string, r Result) error {
	if r.Failed() {
		return &ResultError{Op: op, Code: r}
	}
	return nil
}
