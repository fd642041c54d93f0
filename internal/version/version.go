package version

import (
	"fmt"
	"runtime"
)

// Version is the release version embedded in the binary.
// Override at build time with:
// go build -ldflags "-X github.com/oukeidos/jsontp/internal/version.Version=0.2.0"
var Version = "0.1.0"

// Commit is the git commit hash embedded in the binary.
var Commit = "unknown"

// BuildDate is the RFC3339 build timestamp embedded in the binary.
var BuildDate = "unknown"

// Short returns the tool identifier recorded in run reports.
func Short() string {
	return "jsontp/" + Version
}

// Info returns a multi-line version string for CLI output.
func Info() string {
	return fmt.Sprintf("jsontp %s\ncommit: %s\nbuild: %s\ngo: %s %s/%s", Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
