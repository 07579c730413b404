// Package version carries build information set via ldflags
package version

import "fmt"

// Set with -ldflags "-X github.com/philipparndt/gopreview/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetFullVersion appends commit and build date for release builds
func GetFullVersion() string {
	if Version == "dev" {
		return "dev"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildDate)
}
