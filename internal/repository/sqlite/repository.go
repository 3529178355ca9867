package sqlite

import (
	"context"
	"database/sql"

	apperrors "overlay-widgets/internal/errors"
	"overlay-widgets/internal/repository"
	"overlay-widgets/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

const timerEntity = "timer"

// SQLiteRepository implements repository.Repository on an embedded SQLite
// database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ repository.Repository = (*SQLiteRepository)(nil)

// New creates a new SQLite repository instance and applies pending
// migrations. dbPath may be ":memory:".
func New(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.NewDatabaseError("open database", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if err := migrations.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseError("run migrations", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// CreateTimer inserts a new timer row.
func (r *SQLiteRepository) CreateTimer(ctx context.Context, record *repository.TimerRecord) error {
	query := `
	INSERT INTO timers (` + timerColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return Execute(ctx, r.db, "create timer", query,
		record.ID,
		record.Name,
		record.CycleGoal,
		record.Phase,
		BoolToDB(record.IsPaused),
		FormatTimeForDB(record.LastActionTime),
		record.RemainingMs,
		record.CyclesCompleted,
		record.WorkMs,
		record.BreakMs,
		FormatTimeForDB(record.CreatedAt),
		FormatTimeForDB(record.UpdatedAt),
		record.Version,
	)
}

// GetTimer retrieves a timer by ID
func (r *SQLiteRepository) GetTimer(ctx context.Context, id string) (*repository.TimerRecord, error) {
	query := `SELECT ` + timerColumns + ` FROM timers WHERE id = ?`
	return QuerySingle(ctx, r.db, query, ScanTimer, timerEntity, id, id)
}

// ListTimers retrieves all timers, oldest first
func (r *SQLiteRepository) ListTimers(ctx context.Context) ([]*repository.TimerRecord, error) {
	query := `SELECT ` + timerColumns + ` FROM timers ORDER BY created_at ASC, id ASC`
	return QueryMultiple(ctx, r.db, query, ScanTimers, "timers")
}

// ListRunningTimers retrieves the timers that are not paused
func (r *SQLiteRepository) ListRunningTimers(ctx context.Context) ([]*repository.TimerRecord, error) {
	query := `SELECT ` + timerColumns + ` FROM timers WHERE is_paused = 0 ORDER BY created_at ASC, id ASC`
	return QueryMultiple(ctx, r.db, query, ScanTimers, "timers")
}

// UpdateTimer writes the timer when the stored version matches
// record.Version, then advances record.Version.
func (r *SQLiteRepository) UpdateTimer(ctx context.Context, record *repository.TimerRecord) error {
	query := `
	UPDATE timers
	SET name = ?, cycle_goal = ?, phase = ?, is_paused = ?, last_action_time = ?,
		remaining_ms = ?, cycles_completed = ?, work_ms = ?, break_ms = ?, updated_at = ?,
		version = version + 1
	WHERE id = ? AND version = ?`

	result, err := r.db.ExecContext(ctx, query,
		record.Name,
		record.CycleGoal,
		record.Phase,
		BoolToDB(record.IsPaused),
		FormatTimeForDB(record.LastActionTime),
		record.RemainingMs,
		record.CyclesCompleted,
		record.WorkMs,
		record.BreakMs,
		FormatTimeForDB(record.UpdatedAt),
		record.ID,
		record.Version,
	)
	if err != nil {
		return HandleDatabaseError("update timer", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return HandleDatabaseError("get rows affected", err)
	}
	if rows == 0 {
		return r.staleOrMissing(ctx, record.ID)
	}

	record.Version++
	return nil
}

// staleOrMissing explains an update that matched no row
func (r *SQLiteRepository) staleOrMissing(ctx context.Context, id string) error {
	query := `SELECT version FROM timers WHERE id = ?`
	if _, err := QuerySingle(ctx, r.db, query, scanVersion, timerEntity, id, id); err != nil {
		return err
	}
	return apperrors.NewConflictError(timerEntity, id)
}

// DeleteTimer deletes a timer by ID
func (r *SQLiteRepository) DeleteTimer(ctx context.Context, id string) error {
	query := `DELETE FROM timers WHERE id = ?`
	return ExecuteWithRowsAffected(ctx, r.db, query, timerEntity, id, id)
}
