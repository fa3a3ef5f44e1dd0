// Package version carries build metadata stamped in with -ldflags -X.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String describes the build on one line.
func String() string {
	sha := GitSHA
	if sha == "unknown" {
		sha = vcsRevision()
	}
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return fmt.Sprintf("richa %s (%s, built %s)", Version, sha, BuildTime)
}

// vcsRevision falls back to the revision the go tool embedded, if any.
func vcsRevision() string {
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
