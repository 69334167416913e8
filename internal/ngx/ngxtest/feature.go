// Package ngxtest wraps hostfeature.Feature with failure injection and call
// accounting for tests.
package ngxtest

import (
	"errors"
	"fmt"
	"sync"

	"vsdlisr/internal/gpu"
	"vsdlisr/internal/ngx"
	"vsdlisr/internal/ngx/hostfeature"
)

// ErrFake is the error injected through Feature.Fail.
var ErrFake = errors.New("fake NGX failure")

// Feature is a fake ngx.Feature. Zero values of the exported knobs mean
// "available, no scratch, nothing fails".
type Feature struct {
	*hostfeature.Feature

	Unavailable bool
	Scratch     uint64
	// Fail names operations ("available", "scratch", "create", "evaluate",
	// "destroy") that return ErrFake.
	Fail map[string]bool
	// OnEvaluate, when set, runs inside Evaluate before the output is written.
	OnEvaluate func()

	mu        sync.Mutex
	created   int
	destroyed int
	evals     int
	active    int
	overlaps  int
}

// NewFeature returns an available fake feature bound to dev.
func NewFeature(dev *gpu.HostDevice) *Feature {
	return &Feature{Feature: hostfeature.New(dev)}
}

func (f *Feature) failing(op string) error {
	if f.Fail[op] {
		return fmt.Errorf("%s: %w", op, ErrFake)
	}
	return nil
}

func (f *Feature) Available() (bool, error) {
	if err := f.failing("available"); err != nil {
		return false, err
	}
	return !f.Unavailable, nil
}

func (f *Feature) ScratchSize() (uint64, error) {
	if err := f.failing("scratch"); err != nil {
		return 0, err
	}
	return f.Scratch, nil
}

func (f *Feature) Create() error {
	if err := f.failing("create"); err != nil {
		return err
	}
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	return nil
}

func (f *Feature) Evaluate() error {
	f.mu.Lock()
	f.evals++
	f.active++
	if f.active > 1 {
		f.overlaps++
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if err := f.failing("evaluate"); err != nil {
		return err
	}
	if f.OnEvaluate != nil {
		f.OnEvaluate()
	}
	return f.Feature.Evaluate()
}

func (f *Feature) Destroy() error {
	f.mu.Lock()
	f.destroyed++
	f.mu.Unlock()
	return f.failing("destroy")
}

// Created returns how many times Create succeeded.
func (f *Feature) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// Destroyed returns how many times Destroy was called.
func (f *Feature) Destroyed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

// Evaluations returns how many times Evaluate was called.
func (f *Feature) Evaluations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evals
}

// Overlaps returns how many Evaluate calls started while another was running.
func (f *Feature) Overlaps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlaps
}

// Loader hands out a single Feature, or Err.
type Loader struct {
	Feature *Feature
	Err     error

	mu    sync.Mutex
	loads []ngx.Config
}

func (l *Loader) Load(cfg ngx.Config) (ngx.Feature, error) {
	l.mu.Lock()
	l.loads = append(l.loads, cfg)
	l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Feature, nil
}

// Loads returns the configs passed to Load, in order.
func (l *Loader) Loads() []ngx.Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ngx.Config, len(l.loads))
	copy(out, l.loads)
	return out
}
