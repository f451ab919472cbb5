// Package buildinfo exposes version information injected at link time.
package buildinfo

// Version is overridden with -ldflags "-X odin/internal/buildinfo.Version=...".
var Version = "dev"
