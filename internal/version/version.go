// Package version carries the build metadata stamped into warcycle binaries
// via -ldflags.
package version

import "fmt"

// Overridden at build time; the defaults identify an unstamped local build.
var (
	Version = "0.0.0-dev"
	Commit  = "unknown"
	Date    = "unknown"
	Dirty   = "false"
)

// String renders the single-line form printed by the CLI.
func String() string {
	return fmt.Sprintf("warcycle %s (commit %s, built %s, dirty %s)", Version, Commit, Date, Dirty)
}
