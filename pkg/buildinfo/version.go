// Package buildinfo exposes the version stamped into the jam binary.
//
// Version is overridden at release time:
//
//	go build -ldflags "-X github.com/jamhq/jam/pkg/buildinfo.Version=v1.2.3" ./cmd/jam
//
// The VCS revision comes from the build metadata the Go toolchain embeds,
// so no extra ldflags are needed for it.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Version is the semantic version of this build; "dev" unless overridden
// via ldflags.
var Version = "dev"

// Revision returns the VCS revision recorded in the binary's build
// metadata, or "unknown" for builds made outside a checkout.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return "unknown"
}

// Template returns the cobra version template, showing version and revision.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s (revision %s)\n", Version, Revision())
}
