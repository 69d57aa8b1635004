package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config is the TOML configuration file. Environment variables take
// precedence over anything set here.
type Config struct {
	Server struct {
		Host         string   `toml:"host"`
		Origins      []string `toml:"origins"`
		PollInterval string   `toml:"poll_interval"`
		History      int      `toml:"history"`
	} `toml:"server"`

	Robot struct {
		Args           []string `toml:"args"`
		ConnectTimeout string   `toml:"connect_timeout"`
		ExitCode       *int     `toml:"exit_code"`
		Release        string   `toml:"release"`
		Sim            bool     `toml:"sim"`
	} `toml:"robot"`

	Logging struct {
		Debug int `toml:"debug"`
	} `toml:"logging"`
}

var (
	configOnce sync.Once
	config     *Config
	configPath string
)

// GetConfigPaths returns the list of possible config file paths for the current OS
func GetConfigPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			paths = append(paths, filepath.Join(appData, "aria", "config.toml"))
		}
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			paths = append(paths, filepath.Join(userProfile, ".aria", "config.toml"))
		}
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			paths = append(paths, filepath.Join(xdgConfig, "aria", "config.toml"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths,
				filepath.Join(home, ".config", "aria", "config.toml"),
				filepath.Join(home, ".aria", "config.toml"),
			)
		}
		paths = append(paths, "/etc/aria/config.toml")
	}

	return paths
}

// loadConfigFile loads the first available configuration file
func loadConfigFile() (*Config, string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			var cfg Config
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, "", fmt.Errorf("error parsing config file %s: %w", path, err)
			}
			return &cfg, path, nil
		}
	}
	return nil, "", nil
}

// ConfigPath returns the config file in use, or "" when there is none.
func ConfigPath() string {
	GetConfigValue("")
	return configPath
}

// GetConfigValue returns the value for a given environment variable key from the config file
func GetConfigValue(key string) string {
	configOnce.Do(func() {
		var err error
		config, configPath, err = loadConfigFile()
		if err != nil {
			slog.Warn("failed to load config file", "error", err)
		} else if config != nil {
			slog.Debug("loaded config file", "path", configPath)
		}
	})

	if config == nil {
		return ""
	}

	switch key {
	case "ARIA_HOST":
		return config.Server.Host
	case "ARIA_ORIGINS":
		return strings.Join(config.Server.Origins, ",")
	case "ARIA_POLL_INTERVAL":
		return config.Server.PollInterval
	case "ARIA_HISTORY":
		if config.Server.History > 0 {
			return strconv.Itoa(config.Server.History)
		}
	case "ARIA_ARGS":
		return strings.Join(config.Robot.Args, " ")
	case "ARIA_CONNECT_TIMEOUT":
		return config.Robot.ConnectTimeout
	case "ARIA_EXIT_CODE":
		if config.Robot.ExitCode != nil {
			return strconv.Itoa(*config.Robot.ExitCode)
		}
	case "ARIA_RELEASE":
		return config.Robot.Release
	case "ARIA_SIM":
		if config.Robot.Sim {
			return "true"
		}
	case "ARIA_DEBUG":
		if config.Logging.Debug > 0 {
			return strconv.Itoa(config.Logging.Debug)
		}
	}

	return ""
}

// GenerateExampleConfig returns a commented example TOML configuration
func GenerateExampleConfig() string {
	return `# ariago configuration file
# Environment variables (ARIA_*) override anything set here.

[server]
# Control server address (default: "127.0.0.1:8765")
host = "127.0.0.1:8765"
# Extra allowed CORS origins
origins = ["http://localhost:3000"]
# Telemetry sampling period (default: "200ms")
poll_interval = "200ms"
# Telemetry samples kept for /api/telemetry/history (default: 256)
history = 256

[robot]
# ARIA connection arguments
args = ["-robotPort", "/dev/ttyUSB0"]
# How long to wait for the robot to connect (default: no limit)
connect_timeout = "30s"
# Status code passed to aria_exit on close (default: 0)
exit_code = 0
# "exit" terminates the process on close, "shutdown" keeps it running
release = "exit"
# Use the simulated robot instead of libariac
sim = false

[logging]
# 1 for debug, 2 for trace (default: 0)
debug = 0
`
}
