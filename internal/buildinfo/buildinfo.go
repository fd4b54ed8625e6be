// Package buildinfo carries the version stamped into pinlock builds.
package buildinfo

import "runtime/debug"

// Set at build time via -ldflags "-X pinlock/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns a compact identifier for the splash screen and window title.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if c := commit(); c != "unknown" {
		if len(c) > 7 {
			c = c[:7]
		}
		return c
	}
	return "dev"
}

// String is the full line printed by "pinlock version".
func String() string {
	return "pinlock " + Version + " (commit " + commit() + ", built " + Date + ")"
}

// commit falls back to the VCS revision the toolchain embeds when no
// -ldflags value was given. TinyGo builds carry no build info.
func commit() string {
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return "unknown"
}
