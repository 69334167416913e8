// Package vs models the frame-server host that loads the plugin: clip
// metadata, frames, nodes, the per-frame request/ready handshake, argument
// maps and the registration record.
//
// The types mirror the host's C API closely enough that cmd/vsdlisr can
// translate in both directions without loss, while letting the filter and
// its tests run without the host library.
package vs
