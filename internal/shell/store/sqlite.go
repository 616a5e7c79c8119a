package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/tfydeploy/internal/core/domain"
	"github.com/artpar/tfydeploy/internal/core/plan"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// =============================================================================
// Executor Interface
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens the database at dsn and runs migrations.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}
	// One writer at a time; also keeps an in-memory database on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	return createRun(ctx, s.db, run)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *domain.Run) error {
	return finishRun(ctx, s.db, run)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	return getRun(ctx, s.db, id)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOptions) ([]domain.Run, error) {
	return listRuns(ctx, s.db, opts)
}

func (s *SQLiteStore) RecordStep(ctx context.Context, step domain.RunStep) error {
	return recordStep(ctx, s.db, step)
}

// =============================================================================
// Run Operations
// =============================================================================

// runRow represents a run row in the database.
type runRow struct {
	ID         string  `db:"id"`
	Cluster    string  `db:"cluster"`
	Workspace  string  `db:"workspace"`
	Status     string  `db:"status"`
	StartedAt  string  `db:"started_at"`
	FinishedAt *string `db:"finished_at"`
}

// stepRow represents a run_steps row in the database.
type stepRow struct {
	RunID      string `db:"run_id"`
	Position   int    `db:"position"`
	Path       string `db:"path"`
	Tier       string `db:"tier"`
	Outcome    string `db:"outcome"`
	Output     string `db:"output"`
	DurationMS int64  `db:"duration_ms"`
}

func createRun(ctx context.Context, exec executor, run *domain.Run) error {
	query := `
		INSERT INTO runs (id, cluster, workspace, status, started_at, finished_at)
		VALUES (:id, :cluster, :workspace, :status, :started_at, :finished_at)`

	_, err := exec.NamedExecContext(ctx, query, runToRow(run))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.id") {
			return NewStoreError("CreateRun", "run", run.ID, "run already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateRun", "run", run.ID, err.Error(), err)
	}
	return nil
}

func finishRun(ctx context.Context, exec executor, run *domain.Run) error {
	row := runToRow(run)
	result, err := exec.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		row.Status, row.FinishedAt, row.ID)
	if err != nil {
		return NewStoreError("FinishRun", "run", run.ID, err.Error(), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("FinishRun", "run", run.ID, err.Error(), err)
	}
	if rows == 0 {
		return NewStoreError("FinishRun", "run", run.ID, "run not found", ErrNotFound)
	}
	return nil
}

func getRun(ctx context.Context, exec executor, id string) (*domain.Run, error) {
	var row runRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetRun", "run", id, "run not found", ErrNotFound)
		}
		return nil, NewStoreError("GetRun", "run", id, err.Error(), err)
	}

	run, err := rowToRun(&row)
	if err != nil {
		return nil, err
	}

	var steps []stepRow
	err = exec.SelectContext(ctx, &steps, `SELECT * FROM run_steps WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, NewStoreError("GetRun", "run_step", id, err.Error(), err)
	}
	run.Steps = make([]domain.RunStep, 0, len(steps))
	for _, s := range steps {
		run.Steps = append(run.Steps, rowToStep(&s))
	}

	return run, nil
}

func listRuns(ctx context.Context, exec executor, opts ListOptions) ([]domain.Run, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?`

	var rows []runRow
	if err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListRuns", "run", "", err.Error(), err)
	}

	runs := make([]domain.Run, 0, len(rows))
	for _, row := range rows {
		run, err := rowToRun(&row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// =============================================================================
// Step Operations
// =============================================================================

func recordStep(ctx context.Context, exec executor, step domain.RunStep) error {
	query := `
		INSERT INTO run_steps (run_id, position, path, tier, outcome, output, duration_ms)
		VALUES (:run_id, :position, :path, :tier, :outcome, :output, :duration_ms)`

	row := stepRow{
		RunID:      step.RunID,
		Position:   step.Position,
		Path:       step.Path,
		Tier:       string(step.Tier),
		Outcome:    string(step.Outcome),
		Output:     step.Output,
		DurationMS: step.DurationMS,
	}

	_, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		id := fmt.Sprintf("%s/%d", step.RunID, step.Position)
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("RecordStep", "run_step", id, "step already recorded", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("RecordStep", "run_step", id, "run does not exist", ErrForeignKey)
		}
		return NewStoreError("RecordStep", "run_step", id, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Row Conversion
// =============================================================================

func runToRow(run *domain.Run) runRow {
	row := runRow{
		ID:        run.ID,
		Cluster:   run.Cluster,
		Workspace: run.Workspace,
		Status:    string(run.Status),
		StartedAt: run.StartedAt.UTC().Format(timeLayout),
	}
	if run.FinishedAt != nil {
		f := run.FinishedAt.UTC().Format(timeLayout)
		row.FinishedAt = &f
	}
	return row
}

func rowToRun(row *runRow) (*domain.Run, error) {
	startedAt, err := time.Parse(timeLayout, row.StartedAt)
	if err != nil {
		return nil, NewStoreError("rowToRun", "run", row.ID, "failed to parse started_at", ErrInvalidData)
	}

	run := &domain.Run{
		ID:        row.ID,
		Cluster:   row.Cluster,
		Workspace: row.Workspace,
		Status:    domain.RunStatus(row.Status),
		StartedAt: startedAt,
	}
	if row.FinishedAt != nil {
		finishedAt, err := time.Parse(timeLayout, *row.FinishedAt)
		if err != nil {
			return nil, NewStoreError("rowToRun", "run", row.ID, "failed to parse finished_at", ErrInvalidData)
		}
		run.FinishedAt = &finishedAt
	}
	return run, nil
}

func rowToStep(row *stepRow) domain.RunStep {
	return domain.RunStep{
		RunID:      row.RunID,
		Position:   row.Position,
		Path:       row.Path,
		Tier:       plan.Tier(row.Tier),
		Outcome:    plan.Outcome(row.Outcome),
		Output:     row.Output,
		DurationMS: row.DurationMS,
	}
}
