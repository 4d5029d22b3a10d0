//go:build debug
// +build debug

package build

// LogLevel specifies a more verbose default log level for debug builds.
const LogLevel = "debug"
