// Package version holds build metadata stamped in with ldflags, e.g.
//
//	go build -ldflags "-X github.com/rickgao/prediction-pulse/internal/version.Version=v0.3.0 \
//	  -X github.com/rickgao/prediction-pulse/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/...
package version

import "log/slog"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns "<version> (<commit>) built <time>".
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// Attr groups the build metadata for startup log lines.
func Attr() slog.Attr {
	return slog.Group("build",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("time", BuildTime),
	)
}
