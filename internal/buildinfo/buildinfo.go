package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev" // release tag or "dev" for local builds
	CommitHash string  // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)
