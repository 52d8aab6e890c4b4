// Package version reports build information for the wsconsole binaries.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/rickgao/wsconsole/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/wsconsole/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/wsconsole/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Without ldflags, Get falls back to the VCS stamp the go command embeds.
package version

import (
	"log/slog"
	"runtime"
	"runtime/debug"
)

// Build-time variables (set via ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info describes one build.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
}

// Get returns the build info, filling unset fields from the embedded VCS stamp.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && len(s.Value) >= 7 {
				info.Commit = s.Value[:7]
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// String returns a formatted version string.
func (i Info) String() string {
	return i.Version + " (" + i.Commit + ") built " + i.BuildTime + " with " + i.GoVersion
}

// LogValue groups the fields in structured logs.
func (i Info) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", i.Version),
		slog.String("commit", i.Commit),
		slog.String("build_time", i.BuildTime),
		slog.String("go", i.GoVersion),
	)
}

// String returns the formatted version string of this build.
func String() string {
	return Get().String()
}
