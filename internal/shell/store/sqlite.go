package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteJournal
// =============================================================================

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sqlx.DB
}

// NewSQLiteJournal opens the journal database and runs migrations.
func NewSQLiteJournal(dsn string) (*SQLiteJournal, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteJournal", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteJournal", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteJournal", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteJournal{db: db}, nil
}

func runMigrations(db *sqlx.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}

// =============================================================================
// Journal Operations
// =============================================================================

// RecordRun stores the run and its step records in one transaction.
func (s *SQLiteJournal) RecordRun(ctx context.Context, run *DeployRun) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("RecordRun", run.ID, "failed to begin transaction", ErrTxFailed)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO deploy_runs (id, target, outcome, started_at, finished_at)
		VALUES (:id, :target, :outcome, :started_at, :finished_at)`, run)
	if err != nil {
		if isUniqueViolation(err) {
			return NewStoreError("RecordRun", run.ID, "duplicate run ID", ErrDuplicateID)
		}
		return NewStoreError("RecordRun", run.ID, err.Error(), err)
	}

	for i := range run.Steps {
		step := run.Steps[i]
		step.RunID = run.ID
		step.Seq = i
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO deploy_run_steps (run_id, seq, step_id, status, severity, reason, error, duration_ms)
			VALUES (:run_id, :seq, :step_id, :status, :severity, :reason, :error, :duration_ms)`, step)
		if err != nil {
			return NewStoreError("RecordRun", run.ID, err.Error(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("RecordRun", run.ID, "failed to commit", ErrTxFailed)
	}
	return nil
}

// GetRun returns a run with its step records.
func (s *SQLiteJournal) GetRun(ctx context.Context, id string) (*DeployRun, error) {
	var run DeployRun
	err := s.db.GetContext(ctx, &run, `
		SELECT id, target, outcome, started_at, finished_at
		FROM deploy_runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetRun", id, "not found", ErrNotFound)
		}
		return nil, NewStoreError("GetRun", id, err.Error(), err)
	}

	err = s.db.SelectContext(ctx, &run.Steps, `
		SELECT run_id, seq, step_id, status, severity, reason, error, duration_ms
		FROM deploy_run_steps WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, NewStoreError("GetRun", id, err.Error(), err)
	}
	return &run, nil
}

// ListRuns returns recent runs with their step records, newest first.
func (s *SQLiteJournal) ListRuns(ctx context.Context, limit int) ([]DeployRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []DeployRun
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, target, outcome, started_at, finished_at
		FROM deploy_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, NewStoreError("ListRuns", "", err.Error(), err)
	}

	for i := range runs {
		err = s.db.SelectContext(ctx, &runs[i].Steps, `
			SELECT run_id, seq, step_id, status, severity, reason, error, duration_ms
			FROM deploy_run_steps WHERE run_id = ? ORDER BY seq`, runs[i].ID)
		if err != nil {
			return nil, NewStoreError("ListRuns", runs[i].ID, err.Error(), err)
		}
	}
	return runs, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
