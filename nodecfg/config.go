package nodecfg

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

const (
	// DefaultConfigFilename is the default configuration file name p2pd
	// tries to load.
	DefaultConfigFilename = "p2pd.conf"

	// DefaultLogFilename is the name of the log file inside the log
	// directory.
	DefaultLogFilename = "p2pd.log"

	// DefaultLogDirname is the name of the log directory inside the data
	// directory.
	DefaultLogDirname = "logs"
)

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}
