package vs

import (
	"errors"
	"fmt"
	"math"
)

// ErrKeyMissing is returned when a required argument was not passed.
var ErrKeyMissing = errors.New("argument not set")

// Map is the read side of a host argument map.
type Map interface {
	// Node returns the clip stored under key.
	Node(key string) (Node, error)
	// Int returns the integer stored under key; ok is false when unset.
	Int(key string) (v int64, ok bool)
}

// IntSaturated reads key and clamps it into the int32 range, the way the
// host's saturated getter does.
func IntSaturated(m Map, key string) (int, bool) {
	v, ok := m.Int(key)
	if !ok {
		return 0, false
	}
	if v > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if v < math.MinInt32 {
		return math.MinInt32, true
	}
	return int(v), true
}

// Args is a Go-native Map, used by in-process hosts and tests.
type Args map[string]any

func (a Args) Node(key string) (Node, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrKeyMissing)
	}
	n, ok := v.(Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%s: expected a clip, got %T", key, v)
	}
	return n, nil
}

func (a Args) Int(key string) (int64, bool) {
	switch v := a[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	default:
		return 0, false
	}
}

// PrefixError formats err the way the host shows filter errors.
func PrefixError(filter string, err error) string {
	return filter + ": " + err.Error()
}
