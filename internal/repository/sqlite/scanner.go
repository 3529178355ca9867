package sqlite

import (
	"fmt"

	"overlay-widgets/internal/repository"
)

// Scanner interface defines the common scanning behavior for both sql.Row and sql.Rows
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Rows interface defines the common behavior for sql.Rows
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

const timerColumns = `id, name, cycle_goal, phase, is_paused, last_action_time, remaining_ms,
	cycles_completed, work_ms, break_ms, created_at, updated_at, version`

// ScanTimer scans a single timer from a database row. Columns must be in
// timerColumns order.
func ScanTimer(scanner Scanner) (*repository.TimerRecord, error) {
	record := &repository.TimerRecord{}
	var isPaused int64
	var lastAction, createdAt, updatedAt string

	err := scanner.Scan(
		&record.ID,
		&record.Name,
		&record.CycleGoal,
		&record.Phase,
		&isPaused,
		&lastAction,
		&record.RemainingMs,
		&record.CyclesCompleted,
		&record.WorkMs,
		&record.BreakMs,
		&createdAt,
		&updatedAt,
		&record.Version,
	)
	if err != nil {
		return nil, err
	}
	record.IsPaused = isPaused != 0

	if record.LastActionTime, err = ParseTimeFromDB(lastAction); err != nil {
		return nil, fmt.Errorf("parse last_action_time: %w", err)
	}
	if record.CreatedAt, err = ParseTimeFromDB(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if record.UpdatedAt, err = ParseTimeFromDB(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return record, nil
}

// scanVersion reads the version column alone
func scanVersion(scanner Scanner) (*int64, error) {
	var version int64
	if err := scanner.Scan(&version); err != nil {
		return nil, err
	}
	return &version, nil
}

// ScanTimers scans multiple timers from database rows
func ScanTimers(rows Rows) ([]*repository.TimerRecord, error) {
	var records []*repository.TimerRecord
	for rows.Next() {
		record, err := ScanTimer(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
