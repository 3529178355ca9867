// Package postgres stores timers in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "overlay-widgets/internal/errors"
	"overlay-widgets/internal/repository"
)

const timerEntity = "timer"

const schema = `
CREATE TABLE IF NOT EXISTS timers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	cycle_goal INTEGER NOT NULL DEFAULT 0,
	phase TEXT NOT NULL CHECK (phase IN ('working', 'break')),
	is_paused BOOLEAN NOT NULL DEFAULT TRUE,
	last_action_time TIMESTAMPTZ NOT NULL,
	remaining_ms BIGINT NOT NULL,
	cycles_completed INTEGER NOT NULL DEFAULT 0,
	work_ms BIGINT NOT NULL CHECK (work_ms > 0),
	break_ms BIGINT NOT NULL CHECK (break_ms > 0),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
ALTER TABLE timers ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS idx_timers_is_paused ON timers (is_paused);
`

const timerColumns = `id, name, cycle_goal, phase, is_paused, last_action_time, remaining_ms,
	cycles_completed, work_ms, break_ms, created_at, updated_at, version`

// Repository implements repository.Repository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

var _ repository.Repository = (*Repository)(nil)

// New connects to dsn and ensures the timers schema exists.
func New(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperrors.NewDatabaseError("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewDatabaseError("ping", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, apperrors.NewDatabaseError("ensure schema", err)
	}
	return &Repository{pool: pool}, nil
}

// Close releases the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) CreateTimer(ctx context.Context, record *repository.TimerRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO timers (`+timerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		record.ID,
		record.Name,
		record.CycleGoal,
		record.Phase,
		record.IsPaused,
		record.LastActionTime,
		record.RemainingMs,
		record.CyclesCompleted,
		record.WorkMs,
		record.BreakMs,
		record.CreatedAt,
		record.UpdatedAt,
		record.Version,
	)
	if err != nil {
		return handleError("create timer", err)
	}
	return nil
}

func (r *Repository) GetTimer(ctx context.Context, id string) (*repository.TimerRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+timerColumns+` FROM timers WHERE id = $1`, id)
	record, err := scanTimer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(timerEntity, id)
		}
		return nil, handleError("get timer", err)
	}
	return record, nil
}

func (r *Repository) ListTimers(ctx context.Context) ([]*repository.TimerRecord, error) {
	return r.list(ctx, `SELECT `+timerColumns+` FROM timers ORDER BY created_at ASC, id ASC`)
}

func (r *Repository) ListRunningTimers(ctx context.Context) ([]*repository.TimerRecord, error) {
	return r.list(ctx, `SELECT `+timerColumns+` FROM timers WHERE NOT is_paused ORDER BY created_at ASC, id ASC`)
}

func (r *Repository) list(ctx context.Context, query string) ([]*repository.TimerRecord, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, handleError("query timers", err)
	}
	defer rows.Close()

	var records []*repository.TimerRecord
	for rows.Next() {
		record, err := scanTimer(rows)
		if err != nil {
			return nil, handleError("scan timers", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, handleError("scan timers", err)
	}
	return records, nil
}

// UpdateTimer writes the timer when the stored version matches
// record.Version, then advances record.Version.
func (r *Repository) UpdateTimer(ctx context.Context, record *repository.TimerRecord) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE timers
		SET name = $1, cycle_goal = $2, phase = $3, is_paused = $4, last_action_time = $5,
			remaining_ms = $6, cycles_completed = $7, work_ms = $8, break_ms = $9, updated_at = $10,
			version = version + 1
		WHERE id = $11 AND version = $12`,
		record.Name,
		record.CycleGoal,
		record.Phase,
		record.IsPaused,
		record.LastActionTime,
		record.RemainingMs,
		record.CyclesCompleted,
		record.WorkMs,
		record.BreakMs,
		record.UpdatedAt,
		record.ID,
		record.Version,
	)
	if err != nil {
		return handleError("update timer", err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, record.ID)
	}
	record.Version++
	return nil
}

func (r *Repository) staleOrMissing(ctx context.Context, id string) error {
	var version int64
	err := r.pool.QueryRow(ctx, `SELECT version FROM timers WHERE id = $1`, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(timerEntity, id)
	}
	if err != nil {
		return handleError("get timer version", err)
	}
	return apperrors.NewConflictError(timerEntity, id)
}

func (r *Repository) DeleteTimer(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM timers WHERE id = $1`, id)
	if err != nil {
		return handleError("delete timer", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(timerEntity, id)
	}
	return nil
}

func scanTimer(row pgx.Row) (*repository.TimerRecord, error) {
	record := &repository.TimerRecord{}
	err := row.Scan(
		&record.ID,
		&record.Name,
		&record.CycleGoal,
		&record.Phase,
		&record.IsPaused,
		&record.LastActionTime,
		&record.RemainingMs,
		&record.CyclesCompleted,
		&record.WorkMs,
		&record.BreakMs,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.Version,
	)
	if err != nil {
		return nil, err
	}
	record.LastActionTime = record.LastActionTime.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func handleError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(operation, err.Error())
	}
	return apperrors.NewDatabaseError(operation, err)
}
