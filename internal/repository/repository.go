// Package repository defines the storage contract for timer state. Backends
// live in the sqlite and postgres subpackages.
package repository

import (
	"context"
	"time"
)

// TimerRecord is the persisted row of a timer. Durations are stored in
// milliseconds.
type TimerRecord struct {
	ID              string
	Name            string
	CycleGoal       int
	Phase           string
	IsPaused        bool
	LastActionTime  time.Time
	RemainingMs     int64
	CyclesCompleted int
	WorkMs          int64
	BreakMs         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	// Version counts the writes applied to the row since it was created.
	Version int64
}

// Repository defines the interface for timer persistence.
//
// UpdateTimer only writes when the stored version still equals
// record.Version and increments record.Version when it does. A stale version
// fails with a conflict error and a missing timer with a not found error.
type Repository interface {
	CreateTimer(ctx context.Context, record *TimerRecord) error

	GetTimer(ctx context.Context, id string) (*TimerRecord, error)
	ListTimers(ctx context.Context) ([]*TimerRecord, error)
	ListRunningTimers(ctx context.Context) ([]*TimerRecord, error)

	UpdateTimer(ctx context.Context, record *TimerRecord) error

	DeleteTimer(ctx context.Context, id string) error

	Close() error
}
