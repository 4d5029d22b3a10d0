//go:build !debug
// +build !debug

package build

// LogLevel specifies the default log level used by stdout sub-loggers in
// development builds.
const LogLevel = "info"
