package p2pd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/nodewire/p2pd/build"
	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/nodecfg"
)

const (
	defaultDataDirname = "data"
	defaultLogLevel    = "info"
)

var (
	// DefaultP2PDDir is the default directory where p2pd tries to find
	// its configuration file and store its data. This is a directory in
	// the user's application data, for example:
	//   C:\Users\<username>\AppData\Local\P2pd on Windows
	//   ~/.p2pd on Linux
	//   ~/Library/Application Support/P2pd on MacOS
	DefaultP2PDDir = appDataDir("p2pd")

	// DefaultConfigFile is the default full path of p2pd's configuration
	// file.
	DefaultConfigFile = filepath.Join(
		DefaultP2PDDir, nodecfg.DefaultConfigFilename,
	)

	defaultDataDir = filepath.Join(DefaultP2PDDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(DefaultP2PDDir, nodecfg.DefaultLogDirname)
)

// Config defines the configuration options for p2pd.
//
// See LoadConfig for further details regarding the configuration loading and
// parsing process.
//
//nolint:ll
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`

	P2PDDir    string `long:"p2pddir" description:"The base directory that contains p2pd's data, logs, configuration file, etc."`
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"The directory to store p2pd's data within"`
	LogDir     string `long:"logdir" description:"Directory to log output."`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	Node *nodecfg.Node `group:"node" namespace:"node"`

	Prometheus nodecfg.Prometheus `group:"prometheus" namespace:"prometheus"`

	HealthChecks *nodecfg.HealthCheckConfig `group:"healthcheck" namespace:"healthcheck"`

	LogConfig *build.LogConfig `group:"logging" namespace:"logging"`

	// bind is the parsed Node.Bind endpoint.
	bind endpoint.Address

	// connectPeers are the parsed Node.Connect endpoints.
	connectPeers []endpoint.Address
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		P2PDDir:      DefaultP2PDDir,
		ConfigFile:   DefaultConfigFile,
		DataDir:      defaultDataDir,
		LogDir:       defaultLogDir,
		DebugLevel:   defaultLogLevel,
		Node:         nodecfg.DefaultNode(),
		Prometheus:   nodecfg.DefaultPrometheus(),
		HealthChecks: nodecfg.DefaultHealthCheck(),
		LogConfig:    build.DefaultLogConfig(),
	}
}

// Bind returns the validated P2P listen endpoint.
func (c *Config) Bind() endpoint.Address {
	return c.bind
}

// ConnectPeers returns the validated endpoints to connect to on startup.
func (c *Config) ConnectPeers() []endpoint.Address {
	return c.connectPeers
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig(args []string) (*Config, error) {
	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := DefaultConfig()
	if _, err := flags.NewParser(&preCfg, flags.Default).ParseArgs(
		args,
	); err != nil {
		return nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", build.Version(),
			"commit="+build.Commit)
		os.Exit(0)
	}

	// If the config file path has not been modified by the user, then
	// we'll use the default config file path. However, if the user has
	// modified their p2pddir, then we should assume they intend to use the
	// config file within it.
	configFileDir := nodecfg.CleanAndExpandPath(preCfg.P2PDDir)
	configFilePath := nodecfg.CleanAndExpandPath(preCfg.ConfigFile)
	if configFileDir != DefaultP2PDDir {
		if configFilePath == DefaultConfigFile {
			configFilePath = filepath.Join(
				configFileDir, nodecfg.DefaultConfigFilename,
			)
		}
	}

	// Next, load any additional configuration options from the file.
	var configFileError error
	cfg := preCfg
	parser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(parser).ParseFile(configFilePath)
	if err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) {
			return nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	// Make sure everything we just loaded makes sense.
	cleanCfg, err := ValidateConfig(cfg, usageMessage)
	if err != nil {
		return nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options. Note this should go directly before the return.
	if configFileError != nil {
		p2pdLog.Warnf("%v", configFileError)
	}

	return cleanCfg, nil
}

// ValidateConfig check the given configuration to be sane. This makes sure no
// illegal values or combination of values are set. All file system paths are
// normalized. The cleaned up config is returned on success.
func ValidateConfig(cfg Config, usageMessage string) (*Config, error) {
	// If the provided p2pd directory is not the default, we'll modify the
	// path to all of the files and directories that will live within it.
	p2pdDir := nodecfg.CleanAndExpandPath(cfg.P2PDDir)
	if p2pdDir != DefaultP2PDDir {
		cfg.DataDir = filepath.Join(p2pdDir, defaultDataDirname)
		cfg.LogDir = filepath.Join(p2pdDir, nodecfg.DefaultLogDirname)
	}

	mkErr := func(format string, args ...interface{}) error {
		return fmt.Errorf("%s: %w", usageMessage,
			fmt.Errorf(format, args...))
	}

	cfg.DataDir = nodecfg.CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = nodecfg.CleanAndExpandPath(cfg.LogDir)

	if cfg.Node == nil {
		return nil, mkErr("node options are required")
	}

	bind, peers, err := cfg.Node.Validate()
	if err != nil {
		return nil, mkErr("%w", err)
	}
	cfg.bind = bind
	cfg.connectPeers = peers

	if cfg.Prometheus.Enable && cfg.Prometheus.Listen == "" {
		return nil, mkErr("prometheus.listen must be set when " +
			"prometheus.enable is")
	}

	if cfg.HealthChecks == nil {
		return nil, mkErr("healthcheck options are required")
	}
	if err := cfg.HealthChecks.Validate(); err != nil {
		return nil, mkErr("%w", err)
	}

	if cfg.LogConfig == nil {
		return nil, mkErr("logging options are required")
	}
	if err := cfg.LogConfig.Validate(); err != nil {
		return nil, mkErr("%w", err)
	}

	if cfg.DebugLevel == "" {
		return nil, mkErr("debuglevel must not be empty")
	}

	return &cfg, nil
}

// LogFile returns the path of the daemon's log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, nodecfg.DefaultLogFilename)
}

// appDataDir returns the operating system specific directory used to store
// application data for the given app name.
func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appName
	}

	switch runtime.GOOS {
	case "windows", "darwin":
		config, err := os.UserConfigDir()
		if err == nil && config != "" {
			return filepath.Join(
				config, strings.ToUpper(appName[:1])+appName[1:],
			)
		}
	}

	return filepath.Join(home, "."+appName)
}
