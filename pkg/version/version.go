// Package version keeps the information about the current build. The variables
// are expected to be set through the -ldflags "-X ..." options at the build time.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version contains the build version
	Version = "v0.0.0-dev"
	// GitCommit contains the git commit ID the build is made from
	GitCommit = "n/a"
	// BuildDate contains the date and time when the build is made
	BuildDate = "n/a"
	// GoVersion contains the go runtime version the build is made with
	GoVersion = runtime.Version()
)

// BuildVersionString returns the human-readable description of the build
func BuildVersionString() string {
	return fmt.Sprintf("cachekit %s (commit=%s, built=%s, %s)", Version, GitCommit, BuildDate, GoVersion)
}
