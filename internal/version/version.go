// Package version centralizes the build-time version string.
package version

// Version is overridden at build time:
// go build -ldflags "-X github.com/standardbeagle/plagscan/internal/version.Version=v1.2.3"
var Version = "dev"
