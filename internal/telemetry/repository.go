package telemetry

import (
	"database/sql"
	"os"
	"path/filepath"

	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const (
	schemaVersion = 1

	dirPerm = 0o755

	createTablesSQL = `
	CREATE TABLE IF NOT EXISTS schema_versions (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS control_steps (
		timestamp        INTEGER PRIMARY KEY,
		temperature      INTEGER NOT NULL,
		last_temperature INTEGER NOT NULL,
		duty             INTEGER NOT NULL,
		applied          INTEGER NOT NULL CHECK (applied IN (0, 1))
	);`

	insertStepSQL = `
	INSERT OR REPLACE INTO control_steps (
		timestamp, temperature, last_temperature, duty, applied
	) VALUES (?, ?, ?, ?, ?)`

	recordVersionSQL = `
	INSERT OR IGNORE INTO schema_versions (version, applied_at)
	VALUES (?, datetime('now'))`
)

type repository struct {
	db *sql.DB
}

func newRepository(dbPath string) (*repository, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(filepath.Dir(dbPath), dirPerm); err != nil {
		return nil, errFactory.Wrap(errors.ErrTelemetryInit, err)
	}

	// WAL keeps writers from blocking the occasional reader.
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_auto_vacuum=2")
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrTelemetryInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &repository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(errors.ErrTelemetryInit, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback schema transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(errors.ErrTelemetryInit, err)
	}
	if _, err := tx.Exec(recordVersionSQL, schemaVersion); err != nil {
		return errFactory.Wrap(errors.ErrTelemetryInit, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(errors.ErrTelemetryInit, err)
	}
	committed = true

	return nil
}

func (r *repository) record(sample *Sample) error {
	errFactory := errors.New()

	_, err := r.db.Exec(insertStepSQL,
		sample.Timestamp.UnixMilli(),
		sample.Temperature,
		sample.LastTemperature,
		sample.Duty,
		boolToInt(sample.Applied),
	)
	if err != nil {
		return errFactory.Wrap(errors.ErrTelemetryRecord, err)
	}

	return nil
}

func (r *repository) close() error {
	errFactory := errors.New()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logger.Debug().Err(err).Msg("WAL checkpoint on close failed")
	}

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(errors.ErrTelemetryClose, err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
