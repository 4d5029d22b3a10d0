package build

import (
	"fmt"
	"strings"
)

// Commit stores the current commit of this build, which includes the most
// recent tag. It is set at link time, e.g.
// -ldflags "-X github.com/nodewire/p2pd/build.Commit=v0.3.0-12-gdeadbee".
var Commit string

const (
	// AppMajor defines the major version of this binary.
	AppMajor uint = 0

	// AppMinor defines the minor version of this binary.
	AppMinor uint = 3

	// AppPatch defines the application patch for this binary.
	AppPatch uint = 0

	// AppPreRelease holds the pre-release label, empty for final releases.
	AppPreRelease = "beta"
)

// Version returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (http://semver.org/).
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", AppMajor, AppMinor, AppPatch)
	if AppPreRelease != "" {
		version = fmt.Sprintf("%s-%s", version, AppPreRelease)
	}

	return version
}

// UserAgent returns the version with the commit appended, if known.
func UserAgent(name string) string {
	agent := fmt.Sprintf("%s/%s", name, Version())
	if commit := strings.TrimSpace(Commit); commit != "" {
		agent = fmt.Sprintf("%s (%s)", agent, commit)
	}

	return agent
}
