// Package version reports build information set with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/longkey1/avcoach/internal/version.Version=v1.0.0 ..."
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Build is the build information of the running binary
type Build struct {
	Version   string `json:"version"`
	CommitSHA string `json:"commit"`
	BuildTime string `json:"built"`
	GoVersion string `json:"go"`
	Platform  string `json:"platform"`
}

// Get returns the build information
func Get() Build {
	return Build{
		Version:   Version,
		CommitSHA: CommitSHA,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short returns "avcoach <version>"
func Short() string {
	return "avcoach " + Version
}

// Info returns the full version description
func Info() string {
	b := Get()
	return fmt.Sprintf("avcoach %s\n  commit: %s\n  built:  %s\n  go:     %s %s",
		b.Version, b.CommitSHA, b.BuildTime, b.GoVersion, b.Platform)
}
