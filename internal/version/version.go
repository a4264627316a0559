// Package version reports the build of the running vcapture binary.
package version

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X github.com/smazurov/vcapture/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version" example:"1.2.0" doc:"Release version, dev for local builds"`
	GitCommit string `json:"git_commit,omitempty" example:"abc1234" doc:"Source revision"`
	Modified  bool   `json:"modified,omitempty" doc:"Built from a dirty working tree"`
	BuildDate string `json:"build_date,omitempty" example:"2025-01-09T10:30:00Z" doc:"Build or commit time"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain"`
	Platform  string `json:"platform" example:"linux/arm" doc:"GOOS/GOARCH"`
}

var (
	vcsOnce sync.Once
	vcs     Info
)

// readVCS fills in revision data stamped by the go tool for builds that
// did not set it through ldflags.
func readVCS() Info {
	vcsOnce.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				vcs.GitCommit = s.Value
				if len(vcs.GitCommit) > 7 {
					vcs.GitCommit = vcs.GitCommit[:7]
				}
			case "vcs.time":
				vcs.BuildDate = s.Value
			case "vcs.modified":
				vcs.Modified = s.Value == "true"
			}
		}
	})
	return vcs
}

// Get returns the build information.
func Get() Info {
	info := readVCS()
	info.Version = Version
	if GitCommit != "" {
		info.GitCommit = GitCommit
		info.Modified = false
	}
	if BuildDate != "" {
		info.BuildDate = BuildDate
	}
	info.GoVersion = runtime.Version()
	info.Platform = runtime.GOOS + "/" + runtime.GOARCH
	return info
}

// String returns the version with the short commit, if known.
func String() string {
	info := Get()
	if info.GitCommit == "" {
		return info.Version
	}
	s := info.Version + " (" + info.GitCommit
	if info.Modified {
		s += "-dirty"
	}
	return s + ")"
}
