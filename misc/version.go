// Package misc keeps build time information.
package misc

import (
	"runtime/debug"
)

// Set by linker: -ldflags "-X svgmin/misc.version=... -X svgmin/misc.gitHash=..."
var (
	version = "dev"
	gitHash = ""
)

const appName = "svgmin"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns linker supplied hash or VCS revision recorded by the Go
// toolchain.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
