// Package build holds version information injected at link time, e.g.
//
//	go build -ldflags "-X github.com/armadaproject/mvcheck/internal/common/build.ReleaseVersion=v0.1.0"
package build

import "runtime"

var (
	ReleaseVersion = "UNKNOWN"
	GitCommit      = "UNKNOWN"
	BuildTime      = "UNKNOWN"
	GoVersion      = runtime.Version()
)
