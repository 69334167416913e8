package vs

// Node is a reference to an upstream clip.
type Node interface {
	VideoInfo() VideoInfo
	// Release drops the reference. The node must not be used afterwards.
	Release()
}

// ActivationReason values match the host API.
type ActivationReason int

const (
	ActivationError          ActivationReason = -1
	ActivationInitial        ActivationReason = 0
	ActivationAllFramesReady ActivationReason = 1
)

func (r ActivationReason) String() string {
	switch r {
	case ActivationInitial:
		return "initial"
	case ActivationAllFramesReady:
		return "all-frames-ready"
	case ActivationError:
		return "error"
	default:
		return "unknown"
	}
}

// FrameContext is the per-request channel to the host's scheduler.
type FrameContext interface {
	// RequestFrame asks the host to produce frame n of node. The filter is
	// called again with ActivationAllFramesReady once it is available.
	RequestFrame(n int, node Node)

	// GetFrame returns a frame previously requested. The caller owns the
	// returned reference and must hand it back through Core.FreeFrame.
	GetFrame(n int, node Node) (*Frame, error)
}

// Core allocates and frees frames.
type Core interface {
	// NewVideoFrame creates a writable frame. Frame properties are copied
	// from propSrc when it is non-nil.
	NewVideoFrame(f Format, width, height int, propSrc *Frame) (*Frame, error)
	FreeFrame(f *Frame)
}

// Filter is the callback set the host drives for one created clip.
type Filter interface {
	VideoInfo() VideoInfo
	// Mode tells the host how many GetFrame calls it may run at once.
	Mode() FilterMode
	// Dependencies lists the input nodes and how frames are requested
	// from each.
	Dependencies() []Dependency
	// GetFrame returns nil, nil while the request phase is in progress.
	GetFrame(n int, reason ActivationReason, fctx FrameContext, core Core) (*Frame, error)
	Free()
}

// FilterMode values match the host API.
type FilterMode int

const (
	ModeParallel         FilterMode = 0
	ModeParallelRequests FilterMode = 1
	ModeUnordered        FilterMode = 2
	ModeFrameState       FilterMode = 3
)

// RequestPattern values match the host API.
type RequestPattern int

const (
	PatternGeneral       RequestPattern = 0
	PatternNoFrameReuse  RequestPattern = 1
	PatternStrictSpatial RequestPattern = 2
)

// Dependency declares how a filter requests frames from one input node.
type Dependency struct {
	Node    Node
	Pattern RequestPattern
}

// Allows reports whether output frame n may request frame req from the
// dependency. Strict spatial dependencies only ever serve frame n.
func (d Dependency) Allows(n, req int) bool {
	return d.Pattern != PatternStrictSpatial || n == req
}
