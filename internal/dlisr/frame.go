package dlisr

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"vsdlisr/internal/rgb"
	"vsdlisr/internal/vs"
)

// GetFrame produces output frame n. On ActivationInitial it requests source
// frame n and returns nothing; on ActivationAllFramesReady it upscales that
// frame. Other reasons return nothing.
func (f *Filter) GetFrame(n int, reason vs.ActivationReason, fctx vs.FrameContext, core vs.Core) (*vs.Frame, error) {
	switch reason {
	case vs.ActivationInitial:
		if !f.closed.Load() {
			fctx.RequestFrame(n, f.node)
		}
		return nil, nil
	case vs.ActivationAllFramesReady:
	default:
		return nil, nil
	}

	if f.closed.Load() {
		return nil, f.fail(n, frameError(msgClosed, ErrClosed, nil))
	}
	src, err := fctx.GetFrame(n, f.node)
	if err != nil {
		return nil, f.fail(n, frameError(msgGetFrame, ErrCopy, err))
	}
	defer core.FreeFrame(src)

	dst, err := core.NewVideoFrame(f.vi.Format, f.vi.Width, f.vi.Height, src)
	if err != nil {
		return nil, f.fail(n, frameError(msgNewFrame, ErrCopy, err))
	}
	if err := f.process(src, dst); err != nil {
		core.FreeFrame(dst)
		return nil, f.fail(n, err)
	}

	f.stats.frames.Add(1)
	return dst, nil
}

// process runs one frame through the device. The whole sequence holds the
// stream lock: the staging buffers and the feature's parameter block are
// shared by every frame of the stream.
func (f *Filter) process(src, dst *vs.Frame) error {
	if src.Width != f.cfg.SourceWidth || src.Height != f.cfg.SourceHeight {
		return frameError(msgFrameSize, ErrVariableFormat,
			fmt.Errorf("got %dx%d, want %dx%d", src.Width, src.Height, f.cfg.SourceWidth, f.cfg.SourceHeight))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return frameError(msgClosed, ErrClosed, nil)
	}

	rgb.ToInterleaved(f.inHost, src.RGB())
	if err := f.in.CopyFromHost(f.inHost); err != nil {
		return frameError(msgCopyIn, ErrCopy, err)
	}
	if err := f.dev.Sync(); err != nil {
		return frameError(msgSync, ErrEvaluate, err)
	}

	start := time.Now()
	if err := f.feature.Evaluate(); err != nil {
		return frameError(msgEvaluate, ErrEvaluate, err)
	}
	if err := f.dev.Sync(); err != nil {
		return frameError(msgSync, ErrEvaluate, err)
	}
	f.stats.evalNs.Store(int64(time.Since(start)))

	if err := f.out.CopyToHost(f.outHost); err != nil {
		return frameError(msgCopyOut, ErrCopy, err)
	}
	rgb.FromInterleaved(dst.RGB(), f.outHost)
	return nil
}

func (f *Filter) fail(n int, err error) error {
	f.stats.failed.Add(1)
	logrus.WithFields(logrus.Fields{
		"function": "GetFrame",
		"stream":   f.id,
		"frame":    n,
	}).WithError(err).Error("Frame failed")
	return err
}

// Stats is a snapshot of a stream's frame counters.
type Stats struct {
	Frames   uint64
	Failed   uint64
	LastEval time.Duration
}

// Stats returns the stream's counters.
func (f *Filter) Stats() Stats {
	return Stats{
		Frames:   f.stats.frames.Load(),
		Failed:   f.stats.failed.Load(),
		LastEval: time.Duration(f.stats.evalNs.Load()),
	}
}
