package metrics

import (
	"path/filepath"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
)

const (
	defaultDirPerm       = 0o755
	defaultDBPath        = "/var/lib/nvmetool/telemetry.db"
	defaultBatchSize     = 32
	defaultFlushInterval = 30 * time.Second
)

// Config controls the health history database. Recording is off unless
// Enabled is set.
type Config struct {
	DBPath        string
	BackupDir     string
	BatchSize     int
	FlushInterval time.Duration
	Enabled       bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:        defaultDBPath,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		Enabled:       false,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.FlushInterval < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "batch size and flush interval must not be negative")
	}
	return nil
}

// backupDir defaults to a backups directory next to the database.
func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}
