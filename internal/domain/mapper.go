package domain

import (
	"time"

	"overlay-widgets/internal/repository"
)

// TimerMapper handles conversion between domain timers and repository records.
type TimerMapper struct{}

// NewTimerMapper creates a new TimerMapper instance.
func NewTimerMapper() *TimerMapper {
	return &TimerMapper{}
}

// ToRecord converts a domain Timer to a repository record.
func (m *TimerMapper) ToRecord(timer Timer) repository.TimerRecord {
	return repository.TimerRecord{
		ID:              timer.ID,
		Name:            timer.Name,
		CycleGoal:       timer.CycleGoal,
		Phase:           string(timer.State.Phase),
		IsPaused:        timer.State.IsPaused,
		LastActionTime:  timer.State.LastActionTime,
		RemainingMs:     timer.State.RemainingAtLastAction.Milliseconds(),
		CyclesCompleted: timer.State.CyclesCompleted,
		WorkMs:          timer.State.WorkDuration.Milliseconds(),
		BreakMs:         timer.State.BreakDuration.Milliseconds(),
		CreatedAt:       timer.CreatedAt,
		UpdatedAt:       timer.UpdatedAt,
		Version:         timer.Version,
	}
}

// FromRecord converts a repository record to a domain Timer.
func (m *TimerMapper) FromRecord(record repository.TimerRecord) Timer {
	return Timer{
		ID:        record.ID,
		Name:      record.Name,
		CycleGoal: record.CycleGoal,
		State: TimerState{
			Phase:                 Phase(record.Phase),
			IsPaused:              record.IsPaused,
			LastActionTime:        record.LastActionTime,
			RemainingAtLastAction: time.Duration(record.RemainingMs) * time.Millisecond,
			CyclesCompleted:       record.CyclesCompleted,
			WorkDuration:          time.Duration(record.WorkMs) * time.Millisecond,
			BreakDuration:         time.Duration(record.BreakMs) * time.Millisecond,
		},
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Version:   record.Version,
	}
}

// FromRecords converts a slice of repository records to domain Timers.
func (m *TimerMapper) FromRecords(records []repository.TimerRecord) []Timer {
	timers := make([]Timer, len(records))
	for i, record := range records {
		timers[i] = m.FromRecord(record)
	}
	return timers
}

// Mapper provides a unified interface for all mapping operations.
type Mapper struct {
	Timer *TimerMapper
}

// NewMapper creates a new Mapper instance with all sub-mappers.
func NewMapper() *Mapper {
	return &Mapper{
		Timer: NewTimerMapper(),
	}
}
