// Package buildinfo holds version metadata stamped in at link time via
// -ldflags, plus the derived values the orchestrator wire layer sends on
// every request (User-Agent, X-Build-Timestamp).
package buildinfo

import "fmt"

// Version and BuildTimestamp are overridden at build time, e.g.:
//
//	go build -ldflags "-X github.com/nexusprover/client/internal/buildinfo.Version=1.4.2 \
//	  -X github.com/nexusprover/client/internal/buildinfo.BuildTimestamp=2026-07-30T00:00:00Z"
var (
	Version        = "0.0.0-dev"
	BuildTimestamp = "unknown"
	GitCommit      = "unknown"
)

// UserAgent is sent on every orchestrator request so task rejection and
// incident response can be scoped to a specific client build.
func UserAgent() string {
	return fmt.Sprintf("nexus-prover/%s (%s)", Version, GitCommit)
}
