package metrics_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/metrics"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	readings []metrics.Reading
	closed   bool
}

func (m *memoryRepository) Insert(readings []metrics.Reading) error {
	m.readings = append(m.readings, readings...)
	return nil
}

func (m *memoryRepository) Recent(device string, limit int) ([]metrics.Reading, error) {
	var out []metrics.Reading
	for i := len(m.readings) - 1; i >= 0 && len(out) < limit; i-- {
		if m.readings[i].Device == device {
			out = append(out, m.readings[i])
		}
	}
	return out, nil
}

func (m *memoryRepository) Close() error {
	m.closed = true
	return nil
}

func TestDisabledServiceIsNoop(t *testing.T) {
	recorder, err := metrics.NewService(metrics.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	assert.NoError(t, recorder.Record(context.Background(), []telemetry.Snapshot{{Node: "/dev/nvme0n1"}}))
	assert.NoError(t, recorder.Close())
}

func TestConfigValidate(t *testing.T) {
	cfg := metrics.DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	cfg.DBPath = ""
	assert.True(t, errors.HasCode(cfg.Validate(), metrics.ErrInvalidDBPath))

	_, err := metrics.NewService(cfg, logger.Nop())
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidConfig))
}

func TestRecordSkipsStaleSnapshots(t *testing.T) {
	repo := &memoryRepository{}
	recorder := metrics.NewRecorder(repo, logger.Nop())
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := recorder.Record(context.Background(), []telemetry.Snapshot{
		{Node: "/dev/nvme0n1", At: at, TemperatureC: 35, HasTemperature: true, CriticalWarning: 4, HasCriticalWarning: true},
		{Node: "/dev/nvme1n1", At: at, Stale: true, TemperatureC: 40, HasTemperature: true},
		{Node: "/dev/nvme2n1", At: at, Err: errors.New().New(telemetry.ErrProbeFetch)},
	})
	require.NoError(t, err)
	require.Len(t, repo.readings, 2)

	first := repo.readings[0]
	assert.Equal(t, "/dev/nvme0n1", first.Device)
	require.NotNil(t, first.TemperatureC)
	assert.Equal(t, 35, *first.TemperatureC)
	require.NotNil(t, first.CriticalWarning)
	assert.Equal(t, int64(4), *first.CriticalWarning)
	assert.Empty(t, first.Error)

	failed := repo.readings[1]
	assert.Nil(t, failed.TemperatureC)
	assert.Nil(t, failed.CriticalWarning)
	assert.Equal(t, "Failed to fetch health log", failed.Error)

	require.NoError(t, recorder.Close())
	assert.True(t, repo.closed)
}

func TestHistoryReturnsNewestFirst(t *testing.T) {
	recorder := metrics.NewRecorder(&memoryRepository{}, logger.Nop())
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, recorder.Record(context.Background(), []telemetry.Snapshot{
			{Node: "/dev/nvme0n1", At: base.Add(time.Duration(i) * time.Minute), TemperatureC: 30 + i, HasTemperature: true},
			{Node: "/dev/nvme1n1", At: base, TemperatureC: 50, HasTemperature: true},
		}))
	}

	readings, err := recorder.History("/dev/nvme0n1", 2)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 32, *readings[0].TemperatureC)
	assert.Equal(t, 31, *readings[1].TemperatureC)

	_, err = recorder.History("/dev/nvme0n1", 0)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestNoopHistoryIsEmpty(t *testing.T) {
	readings, err := metrics.Noop().History("/dev/nvme0n1", 10)
	assert.NoError(t, err)
	assert.Empty(t, readings)
}

func TestRecordHonoursCancelledContext(t *testing.T) {
	recorder := metrics.NewRecorder(&memoryRepository{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := recorder.Record(ctx, []telemetry.Snapshot{{Node: "/dev/nvme0n1"}})
	assert.True(t, errors.HasCode(err, metrics.ErrOperationTimeout))
}

func openRepository(t *testing.T, cfg metrics.Config) metrics.Repository {
	t.Helper()
	repo, err := metrics.NewRepository(cfg, logger.Nop())
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skip("go-sqlite3 needs cgo")
	}
	require.NoError(t, err)
	return repo
}

func sqliteConfig(t *testing.T) metrics.Config {
	dir := t.TempDir()
	return metrics.Config{
		DBPath:    filepath.Join(dir, "telemetry.db"),
		BackupDir: filepath.Join(dir, "backups"),
		BatchSize: 10,
		Enabled:   true,
	}
}

func TestRepositoryStoresReadings(t *testing.T) {
	cfg := sqliteConfig(t)
	repo := openRepository(t, cfg)

	temp := 35
	warn := int64(0)
	older := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(10 * time.Second)

	require.NoError(t, repo.Insert([]metrics.Reading{
		{Device: "/dev/nvme0n1", At: older, TemperatureC: &temp, CriticalWarning: &warn},
		{Device: "/dev/nvme0n1", At: newer, Error: "Failed to fetch health log"},
		{Device: "/dev/nvme1n1", At: newer, TemperatureC: &temp},
	}))

	readings, err := repo.Recent("/dev/nvme0n1", 10)
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.True(t, readings[0].At.Equal(newer))
	assert.Nil(t, readings[0].TemperatureC)
	assert.Equal(t, "Failed to fetch health log", readings[0].Error)

	assert.True(t, readings[1].At.Equal(older))
	require.NotNil(t, readings[1].TemperatureC)
	assert.Equal(t, 35, *readings[1].TemperatureC)
	require.NotNil(t, readings[1].CriticalWarning)
	assert.Equal(t, int64(0), *readings[1].CriticalWarning)

	limited, err := repo.Recent("/dev/nvme0n1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "second close is a no-op")
}

func TestRepositoryFlushesOnClose(t *testing.T) {
	cfg := sqliteConfig(t)
	repo := openRepository(t, cfg)

	temp := 41
	require.NoError(t, repo.Insert([]metrics.Reading{{Device: "/dev/nvme0n1", At: time.Now(), TemperatureC: &temp}}))
	require.NoError(t, repo.Close())

	reopened := openRepository(t, cfg)
	defer reopened.Close()

	readings, err := reopened.Recent("/dev/nvme0n1", 10)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 41, *readings[0].TemperatureC)
}

func TestSchemaMismatchBacksUpAndRecreates(t *testing.T) {
	cfg := sqliteConfig(t)
	repo := openRepository(t, cfg)
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'))`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo = openRepository(t, cfg)
	defer repo.Close()

	backups, err := filepath.Glob(filepath.Join(cfg.BackupDir, "telemetry_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	readings, err := repo.Recent("/dev/nvme0n1", 10)
	require.NoError(t, err)
	assert.Empty(t, readings)
}
