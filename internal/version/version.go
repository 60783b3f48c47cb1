// Package version provides build and version information about the console.
package version

import (
	"fmt"
	"runtime/debug"
)

// These variables are set at build time using -ldflags.
// Local development builds fall back to "dev"/"unknown".
var (
	// Version is the git tag version number.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date of the build.
	BuildDate = "unknown"
)

// Info holds all the version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the version information, filling gaps from debug.ReadBuildInfo.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.GoVersion = bi.GoVersion

	var goos, goarch string
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "GOOS":
			goos = setting.Value
		case "GOARCH":
			goarch = setting.Value
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = setting.Value
			}
		}
	}
	if goos != "" && goarch != "" {
		info.Platform = fmt.Sprintf("%s/%s", goos, goarch)
	}

	return info
}

// String returns a single-line human readable version string.
func (i Info) String() string {
	return fmt.Sprintf("sovdscope %s (commit %s, built %s)", i.Version, i.Commit, i.BuildDate)
}
