package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "nvmetool.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
interval = 5
probe_timeout = 3
grace_period = 2
log_level = "debug"
elevate = "doas"
block_size = "64M"
devices = ["/dev/nvme0n1", "/dev/nvme1n1"]
telemetry = true
telemetry_db = "/path/to/telemetry.db"
`)
	t.Setenv("NVMETOOL_CONFIG", configPath)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Interval, "Expected Interval 5")
	assert.Equal(t, 3*time.Second, cfg.ProbeDeadline())
	assert.Equal(t, 2*time.Second, cfg.Grace())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"doas"}, cfg.ElevateCommand())
	assert.Equal(t, "64M", cfg.BlockSize)
	assert.Equal(t, []string{"/dev/nvme0n1", "/dev/nvme1n1"}, cfg.Devices)
	assert.True(t, cfg.Telemetry)
	assert.Equal(t, "/path/to/telemetry.db", cfg.TelemetryDB)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NVMETOOL_CONFIG", "")

	cfg, err := config.Load(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	assert.Equal(t, cfg.PollInterval(), cfg.ProbeDeadline(), "probe deadline defaults to one interval")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, []string{"sudo"}, cfg.ElevateCommand())
	assert.Equal(t, "nvme", cfg.NVMe)
	assert.Equal(t, "dd", cfg.DD)
	assert.Equal(t, "1000M", cfg.BlockSize)
	assert.False(t, cfg.Headless)
	assert.False(t, cfg.Telemetry)
	assert.Equal(t, config.DefaultTelemetryDB, cfg.TelemetryDB)
}

func TestFlagsOverrideFile(t *testing.T) {
	configPath := writeConfig(t, `
interval = 5
log_level = "error"
`)
	t.Setenv("NVMETOOL_CONFIG", configPath)

	cfg, err := config.Load([]string{"--interval", "7", "--headless", "--devices", "/dev/nvme2n1"})
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Interval)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.True(t, cfg.Headless)
	assert.Equal(t, []string{"/dev/nvme2n1"}, cfg.Devices)
}

func TestDashedFlagNames(t *testing.T) {
	t.Setenv("NVMETOOL_CONFIG", "")

	cfg, err := config.Load([]string{"--log-level", "warning", "--probe-timeout", "4"})
	require.NoError(t, err)

	assert.Equal(t, "warning", cfg.LogLevel)
	assert.Equal(t, 4*time.Second, cfg.ProbeDeadline())
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("NVMETOOL_CONFIG", "")
	t.Setenv("NVMETOOL_ELEVATE", "")
	t.Setenv("NVMETOOL_INTERVAL", "3")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Interval)
}

func TestEmptyElevateDisablesPrefix(t *testing.T) {
	t.Setenv("NVMETOOL_CONFIG", "")

	cfg, err := config.Load([]string{"--elevate", ""})
	require.NoError(t, err)

	assert.Empty(t, cfg.ElevateCommand())
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("NVMETOOL_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "invalid"
`)
	t.Setenv("NVMETOOL_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_log_level")
}

func TestInvalidInterval(t *testing.T) {
	t.Setenv("NVMETOOL_CONFIG", "")

	_, err := config.Load([]string{"--interval", "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid interval value")
}

func TestUnknownFlag(t *testing.T) {
	t.Setenv("NVMETOOL_CONFIG", "")

	_, err := config.Load([]string{"--no-such-flag"})
	require.Error(t, err)
}
