package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config

	mu     sync.Mutex
	buffer []Reading
	closed bool

	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

// NewRepository opens (or creates) the SQLite history at cfg.DBPath.
// Readings are buffered and written in batches of cfg.BatchSize, and at
// least every cfg.FlushInterval.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("flush_interval", cfg.FlushInterval).
		Msg("Telemetry repository initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]Reading, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.FlushInterval > 0 {
		repo.flushTicker = time.NewTicker(cfg.FlushInterval)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *repository) Insert(readings []Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New().New(ErrStorageClose)
	}

	r.buffer = append(r.buffer, readings...)
	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}
	return nil
}

// Recent returns up to limit readings of device, newest first. Buffered
// readings are flushed first.
func (r *repository) Recent(device string, limit int) ([]Reading, error) {
	errFactory := errors.New()

	r.mu.Lock()
	err := r.flush()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(recentReadingsSQL, device, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var (
			reading Reading
			at      int64
			temp    sql.NullInt64
			warn    sql.NullInt64
		)
		if err := rows.Scan(&reading.Device, &at, &temp, &warn, &reading.Error); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		reading.At = time.Unix(0, at)
		if temp.Valid {
			t := int(temp.Int64)
			reading.TemperatureC = &t
		}
		if warn.Valid {
			w := warn.Int64
			reading.CriticalWarning = &w
		}
		out = append(out, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return out, nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.shutdownChan)
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}
	<-r.flushDoneChan

	r.mu.Lock()
	flushErr := r.flush()
	r.mu.Unlock()
	if flushErr != nil {
		r.logger.Error().Err(flushErr).Msg("Failed to flush telemetry on close")
	}

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to checkpoint telemetry WAL")
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Telemetry repository closed")
	return flushErr
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Periodic telemetry flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			return
		}
	}
}

// flush writes the buffer in one transaction. Callers hold r.mu.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertReadingSQL)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, reading := range r.buffer {
		var temp, warn any
		if reading.TemperatureC != nil {
			temp = int64(*reading.TemperatureC)
		}
		if reading.CriticalWarning != nil {
			warn = *reading.CriticalWarning
		}

		if _, err := stmt.Exec(reading.Device, reading.At.UnixNano(), temp, warn, reading.Error); err != nil {
			r.logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed telemetry to database")
	r.buffer = r.buffer[:0]

	return nil
}
