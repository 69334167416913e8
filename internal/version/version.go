// Package version carries build metadata and the plugin version reported to
// the host.
package version

import "fmt"

// Plugin version registered with the host.
const (
	PluginMajor = 1
	PluginMinor = 0
)

// Build metadata injected with
// -ldflags "-X vsdlisr/internal/version.BuildNumber=... -X vsdlisr/internal/version.GitCommit=...".
var (
	// BuildNumber is a monotonically increasing string set by the build script.
	BuildNumber = "0"
	// GitCommit is the short commit hash if available; may be "unknown".
	GitCommit = "unknown"
)

// Plugin returns the plugin version as "major.minor".
func Plugin() string { return fmt.Sprintf("%d.%d", PluginMajor, PluginMinor) }

// String returns a concise version string for logs and the CLI.
func String() string {
	build := "build " + BuildNumber
	if GitCommit != "unknown" && GitCommit != "" {
		build += " (" + GitCommit + ")"
	}
	return "vsdlisr " + Plugin() + ", " + build
}
