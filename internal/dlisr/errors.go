package dlisr

import (
	"errors"
	"fmt"
)

// Kind tells setup failures (the clip is never created) from frame failures
// (one output frame is lost).
type Kind int

const (
	KindSetup Kind = iota + 1
	KindFrame
)

func (k Kind) String() string {
	switch k {
	case KindSetup:
		return "setup"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Error is returned by every fallible operation of the filter. Op is the
// step that failed, worded the way it is reported to the host.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func setupError(op string, sentinel, cause error) error {
	return &Error{Kind: KindSetup, Op: op, Err: wrap(sentinel, cause)}
}

func frameError(op string, sentinel, cause error) error {
	return &Error{Kind: KindFrame, Op: op, Err: wrap(sentinel, cause)}
}

func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// IsSetup reports whether err is a setup failure.
func IsSetup(err error) bool { return kindOf(err) == KindSetup }

// IsFrame reports whether err is a per-frame failure.
func IsFrame(err error) bool { return kindOf(err) == KindFrame }

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Input validation errors.
var (
	// ErrMissingClip indicates the clip argument was absent or not a clip.
	ErrMissingClip = errors.New("clip argument required")

	// ErrVariableFormat indicates the input clip changes format or size.
	ErrVariableFormat = errors.New("variable format or dimensions")

	// ErrUnsupportedFormat indicates the input clip is not 8-bit integer RGB.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidScale indicates rfactor is below 1 or the output would not fit.
	ErrInvalidScale = errors.New("invalid scale factor")
)

// Resource errors.
var (
	// ErrAllocate indicates a device allocation failed.
	ErrAllocate = errors.New("device allocation failed")

	// ErrFeature indicates the NGX SDK rejected an initialisation step.
	ErrFeature = errors.New("NGX feature setup failed")

	// ErrFeatureUnavailable indicates the feature cannot run on this system.
	ErrFeatureUnavailable = errors.New("NGX feature unavailable")
)

// Frame errors.
var (
	// ErrCopy indicates a host<->device copy failed.
	ErrCopy = errors.New("device copy failed")

	// ErrEvaluate indicates evaluation or device synchronisation failed.
	ErrEvaluate = errors.New("evaluation failed")

	// ErrClosed indicates a frame was requested after Close.
	ErrClosed = errors.New("filter closed")
)

// Messages shown to the host.
const (
	msgFormat       = "only constant format 8 bit integer RGB supported"
	msgScale        = "rfactor must be a positive integer"
	msgClip         = "Error reading clip argument"
	msgDevice       = "Error initializing CUDA device"
	msgAllocIn      = "Error allocating input image CUDA buffer"
	msgAllocOut     = "Error allocating output image CUDA buffer"
	msgAllocScratch = "Error allocating scratch CUDA buffer"
	msgInit         = "Error Initializing NGX"
	msgAvailable    = "NVSDK_NGX_Feature_ImageSuperResolution Unavailable on this System"
	msgParams       = "Error setting NGX parameters"
	msgScratchSize  = "Error Getting NGX Scratch Buffer Size"
	msgCreate       = "Error creating NGX feature"
	msgGetFrame     = "Error fetching source frame"
	msgNewFrame     = "Error creating output frame"
	msgFrameSize    = "source frame does not match the clip"
	msgCopyIn       = "Error copying input RGB image to CUDA buffer"
	msgCopyOut      = "Error copying output image from CUDA buffer"
	msgSync         = "Error synchronizing CUDA device"
	msgEvaluate     = "Error evaluating NGX feature"
	msgClosed       = "Error processing frame"
)
