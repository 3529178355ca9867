package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"overlay-widgets/internal/repository"
)

func TestTimerMapper_ToRecord(t *testing.T) {
	mapper := NewTimerMapper()
	timer := Timer{
		ID:        "b3c1",
		Name:      "Study",
		CycleGoal: 4,
		State: TimerState{
			Phase:                 PhaseBreak,
			IsPaused:              true,
			LastActionTime:        baseTime,
			RemainingAtLastAction: 90 * time.Second,
			CyclesCompleted:       2,
			WorkDuration:          25 * time.Minute,
			BreakDuration:         5 * time.Minute,
		},
		CreatedAt: baseTime.Add(-time.Hour),
		UpdatedAt: baseTime,
		Version:   3,
	}

	result := mapper.ToRecord(timer)

	expected := repository.TimerRecord{
		ID:              "b3c1",
		Name:            "Study",
		CycleGoal:       4,
		Phase:           "break",
		IsPaused:        true,
		LastActionTime:  baseTime,
		RemainingMs:     90000,
		CyclesCompleted: 2,
		WorkMs:          1500000,
		BreakMs:         300000,
		CreatedAt:       baseTime.Add(-time.Hour),
		UpdatedAt:       baseTime,
		Version:         3,
	}
	assert.Equal(t, expected, result)
}

func TestTimerMapper_RoundTrip(t *testing.T) {
	mapper := NewMapper()
	timer, err := NewTimer("a1", "Focus", TimerSettings{WorkDuration: time.Minute, BreakDuration: 30 * time.Second}, baseTime)
	assert.NoError(t, err)

	result := mapper.Timer.FromRecord(mapper.Timer.ToRecord(timer))

	assert.Equal(t, timer, result)
}

func TestTimerMapper_FromRecords(t *testing.T) {
	mapper := NewTimerMapper()
	records := []repository.TimerRecord{
		{ID: "1", Name: "One", Phase: "working", WorkMs: 1000, BreakMs: 500, RemainingMs: 1000},
		{ID: "2", Name: "Two", Phase: "break", WorkMs: 1000, BreakMs: 500, RemainingMs: 250},
	}

	result := mapper.FromRecords(records)

	assert.Len(t, result, 2)
	assert.Equal(t, PhaseWorking, result[0].State.Phase)
	assert.Equal(t, PhaseBreak, result[1].State.Phase)
	assert.Equal(t, 250*time.Millisecond, result[1].State.RemainingAtLastAction)
}
