package config

import (
	"os"
	"strings"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultInterval    = 10
	DefaultGracePeriod = 5
	DefaultLogLevel    = "info"
	DefaultElevate     = "sudo"
	DefaultNVMe        = "nvme"
	DefaultDD          = "dd"
	DefaultBlockSize   = "1000M"
	DefaultTelemetryDB = "/var/lib/nvmetool/telemetry.db"

	defaultConfigName = "nvmetool"
	defaultConfigDir  = "/etc"
	envPrefix         = "NVMETOOL"
	envConfigPath     = "NVMETOOL_CONFIG"
)

type Config struct {
	Interval     int      `mapstructure:"interval"`
	ProbeTimeout int      `mapstructure:"probe_timeout"`
	GracePeriod  int      `mapstructure:"grace_period"`
	LogLevel     string   `mapstructure:"log_level"`
	LogFile      string   `mapstructure:"log_file"`
	Elevate      string   `mapstructure:"elevate"`
	NVMe         string   `mapstructure:"nvme"`
	DD           string   `mapstructure:"dd"`
	BlockSize    string   `mapstructure:"block_size"`
	Headless     bool     `mapstructure:"headless"`
	Devices      []string `mapstructure:"devices"`
	Telemetry    bool     `mapstructure:"telemetry"`
	TelemetryDB  string   `mapstructure:"telemetry_db"`
}

// PollInterval is the telemetry tick period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// ProbeDeadline bounds a single tick. Zero in the file means "one interval".
func (c *Config) ProbeDeadline() time.Duration {
	if c.ProbeTimeout <= 0 {
		return c.PollInterval()
	}
	return time.Duration(c.ProbeTimeout) * time.Second
}

// Grace is the delay between SIGTERM and SIGKILL for a stopped benchmark.
func (c *Config) Grace() time.Duration {
	return time.Duration(c.GracePeriod) * time.Second
}

// ElevateCommand splits the elevate prefix into argv words.
func (c *Config) ElevateCommand() []string {
	return strings.Fields(c.Elevate)
}

// Load reads defaults, the config file, NVMETOOL_* environment and the
// command line args (without the program name), in increasing precedence.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if err := v.BindPFlags(fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configPath, _ := fs.GetString("config")
	if configPath == "" {
		configPath = os.Getenv(envConfigPath)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(defaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.WithData(errors.ErrReadConfig, err.Error())
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("probe_timeout", 0)
	v.SetDefault("grace_period", DefaultGracePeriod)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("elevate", DefaultElevate)
	v.SetDefault("nvme", DefaultNVMe)
	v.SetDefault("dd", DefaultDD)
	v.SetDefault("block_size", DefaultBlockSize)
	v.SetDefault("headless", false)
	v.SetDefault("devices", []string{})
	v.SetDefault("telemetry", false)
	v.SetDefault("telemetry_db", DefaultTelemetryDB)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("nvmetool", pflag.ContinueOnError)
	fs.String("config", "", "Path to a TOML config file")
	fs.Int("interval", DefaultInterval, "Seconds between telemetry polls")
	fs.Int("probe_timeout", 0, "Seconds a telemetry tick waits for slow devices (0 = interval)")
	fs.Int("grace_period", DefaultGracePeriod, "Seconds between SIGTERM and SIGKILL when stopping a benchmark")
	fs.String("log_level", DefaultLogLevel, "Log level: debug, info, warning, error")
	fs.String("log_file", "", "Write logs to this file instead of stdout")
	fs.String("elevate", DefaultElevate, "Privilege prefix command for collaborators (empty disables)")
	fs.String("nvme", DefaultNVMe, "nvme-cli binary")
	fs.String("dd", DefaultDD, "dd binary")
	fs.String("block_size", DefaultBlockSize, "Block size passed to the write benchmark")
	fs.Bool("headless", false, "Run without the TUI, benchmarking --devices")
	fs.StringSlice("devices", nil, "Device nodes to select at startup")
	fs.Bool("telemetry", false, "Record telemetry snapshots to the history database")
	fs.String("telemetry_db", DefaultTelemetryDB, "Path to the telemetry history database")

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "-", "_"))
	})

	return fs
}

// Validate checks value ranges and the log level.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.ProbeTimeout < 0 {
		return errFactory.WithData(errors.ErrInvalidTimeout, c.ProbeTimeout)
	}
	if c.GracePeriod < 0 {
		return errFactory.WithData(errors.ErrInvalidGracePeriod, c.GracePeriod)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithMessage(errors.ErrInvalidLogLevel,
			string(errors.ErrInvalidLogLevel)+": "+c.LogLevel)
	}
	if strings.TrimSpace(c.BlockSize) == "" {
		return errFactory.New(errors.ErrInvalidBlockSize)
	}

	return nil
}
