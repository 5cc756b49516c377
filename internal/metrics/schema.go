package metrics

import (
	"database/sql"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS health_readings (
	       id               INTEGER PRIMARY KEY AUTOINCREMENT,
	       device           TEXT NOT NULL,
	       recorded_at      INTEGER NOT NULL,
	       temperature_c    INTEGER CHECK (temperature_c IS NULL OR typeof(temperature_c) = 'integer'),
	       critical_warning INTEGER CHECK (critical_warning IS NULL OR typeof(critical_warning) = 'integer'),
	       error            TEXT NOT NULL DEFAULT ''
	   );
	   CREATE INDEX IF NOT EXISTS health_readings_device_time
	       ON health_readings (device, recorded_at);`

	insertReadingSQL = `
    INSERT INTO health_readings (
        device, recorded_at, temperature_c, critical_warning, error
    ) VALUES (?, ?, ?, ?, ?)`

	recentReadingsSQL = `
    SELECT device, recorded_at, temperature_c, critical_warning, error
    FROM health_readings
    WHERE device = ?
    ORDER BY recorded_at DESC, id DESC
    LIMIT ?`
)

// InitSchema creates the tables and records the current version.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating telemetry database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Telemetry schema initialized")

	return nil
}

// GetSchemaVersion returns the stored schema version, 0 for a new database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()

	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
