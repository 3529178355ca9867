package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimeForDB(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "Valid time",
			input:    time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
			expected: "2024-01-15T10:30:45.000000000Z",
		},
		{
			name:     "Zero time",
			input:    time.Time{},
			expected: "0001-01-01T00:00:00.000000000Z",
		},
		{
			name:     "Time with timezone is stored as UTC",
			input:    time.Date(2024, 6, 15, 14, 30, 0, 0, time.FixedZone("EST", -5*3600)),
			expected: "2024-06-15T19:30:00.000000000Z",
		},
		{
			name:     "Time with milliseconds",
			input:    time.Date(2024, 3, 10, 9, 15, 30, 250000000, time.UTC),
			expected: "2024-03-10T09:15:30.250000000Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatTimeForDB(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatTimeForDB_SortsLexically(t *testing.T) {
	earlier := FormatTimeForDB(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	later := FormatTimeForDB(time.Date(2024, 1, 1, 0, 0, 0, 5000000, time.UTC))

	assert.Less(t, earlier, later)
}

func TestParseTimeFromDB(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    time.Time
		expectError bool
	}{
		{
			name:     "Valid RFC3339 time",
			input:    "2024-01-15T10:30:45Z",
			expected: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
		},
		{
			name:     "Valid RFC3339 time with timezone",
			input:    "2024-06-15T14:30:00-05:00",
			expected: time.Date(2024, 6, 15, 14, 30, 0, 0, time.FixedZone("", -5*3600)),
		},
		{
			name:     "Fixed width nanoseconds",
			input:    "2024-03-10T09:15:30.123000000Z",
			expected: time.Date(2024, 3, 10, 9, 15, 30, 123000000, time.UTC),
		},
		{
			name:        "Invalid time format",
			input:       "2024-01-15 10:30:45",
			expectError: true,
		},
		{
			name:        "Empty string",
			input:       "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimeFromDB(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				assert.True(t, result.IsZero())
			} else {
				assert.NoError(t, err)
				assert.True(t, tt.expected.Equal(result))
			}
		})
	}
}

func TestFormatTimeForDB_RoundTrip(t *testing.T) {
	originalTime := time.Date(2024, 1, 15, 10, 30, 45, 123000000, time.UTC)

	parsed, err := ParseTimeFromDB(FormatTimeForDB(originalTime))

	assert.NoError(t, err)
	assert.Equal(t, originalTime, parsed)
}

func TestBoolToDB(t *testing.T) {
	assert.Equal(t, 1, BoolToDB(true))
	assert.Equal(t, 0, BoolToDB(false))
}
