package envconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestConfigFileDefaults(t *testing.T) {
	home := t.TempDir()
	setTestHome(t, home)
	for _, k := range []string{"ARIA_HOST", "ARIA_ARGS", "ARIA_CONNECT_TIMEOUT", "ARIA_EXIT_CODE", "ARIA_RELEASE", "ARIA_HISTORY", "ARIA_SIM", "ARIA_DEBUG"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	path := filepath.Join(home, ".aria", "config.toml")
	writeConfig(t, path, `
[server]
host = "0.0.0.0:9000"
history = 32

[robot]
args = ["-remoteHost", "sim.local"]
connect_timeout = "5s"
exit_code = 0
release = "shutdown"
sim = true

[logging]
debug = 2
`)

	LoadConfig()
	assert.Equal(t, path, ConfigPath())
	assert.Equal(t, []string{"-remoteHost", "sim.local"}, Args)
	assert.Equal(t, 5*time.Second, ConnectTimeout)
	assert.Equal(t, "shutdown", Release)
	assert.Equal(t, 32, History)
	assert.True(t, Sim)
	assert.Equal(t, 2, Debug)
	assert.Equal(t, "0", GetConfigValue("ARIA_EXIT_CODE"))

	h, err := Host()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", h.String())

	// environment wins over the file
	t.Setenv("ARIA_RELEASE", "exit")
	t.Setenv("ARIA_HISTORY", "8")
	LoadConfig()
	assert.Equal(t, "exit", Release)
	assert.Equal(t, 8, History)
}

func TestConfigFilePrecedence(t *testing.T) {
	home := t.TempDir()
	setTestHome(t, home)

	xdg := filepath.Join(home, ".config", "aria", "config.toml")
	dot := filepath.Join(home, ".aria", "config.toml")
	writeConfig(t, xdg, "[server]\nhost = \"10.0.0.1\"\n")
	writeConfig(t, dot, "[server]\nhost = \"10.0.0.2\"\n")

	assert.Equal(t, "10.0.0.1", GetConfigValue("ARIA_HOST"))
	assert.Equal(t, xdg, ConfigPath())
}

func TestConfigFileInvalid(t *testing.T) {
	home := t.TempDir()
	setTestHome(t, home)
	writeConfig(t, filepath.Join(home, ".aria", "config.toml"), "[server\nhost = ")

	assert.Empty(t, GetConfigValue("ARIA_HOST"))
	assert.Empty(t, ConfigPath())
}

func TestNoConfigFile(t *testing.T) {
	setTestHome(t, t.TempDir())
	assert.Empty(t, GetConfigValue("ARIA_HOST"))
	assert.Empty(t, GetConfigValue("ARIA_EXIT_CODE"))
}

func TestGenerateExampleConfig(t *testing.T) {
	var cfg Config
	_, err := toml.Decode(GenerateExampleConfig(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.Host)
	assert.Equal(t, "exit", cfg.Robot.Release)
	require.NotNil(t, cfg.Robot.ExitCode)
	assert.Equal(t, 0, *cfg.Robot.ExitCode)
}

func TestGetConfigPaths(t *testing.T) {
	home := t.TempDir()
	setTestHome(t, home)

	paths := GetConfigPaths()
	require.NotEmpty(t, paths)
	for _, p := range paths {
		assert.Equal(t, "config.toml", filepath.Base(p))
	}
}
