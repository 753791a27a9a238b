// Package version carries build metadata injected at link time.
package version

import (
	"fmt"
	"runtime"
)

// Overridden via -ldflags "-X .../internal/version.Version=..." and
// friends by the release build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info renders the build metadata as a single human-readable line.
func Info() string {
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("git-chat-assistant %s (%s, %s, %s/%s)",
		Version, commit, Date, runtime.GOOS, runtime.GOARCH)
}
