// Package version reports the build version of the doorbell binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/doorbell/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/doorbell/internal/version.Commit=abc1234"
var (
	Version = ""
	Commit  = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fillFromSettings(info.Settings)
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fillFromSettings derives missing values from the VCS stamp the go tool
// embeds. Build info carries no tags, so Version becomes dev-<commit date>.
func fillFromSettings(settings []debug.BuildSetting) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		Commit = rev[:min(7, len(rev))]
		if vcs["vcs.modified"] == "true" {
			Commit += "-dirty"
		}
	}
	if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); Version == "" && err == nil {
		Version = "dev-" + t.Format("20060102")
	}
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
