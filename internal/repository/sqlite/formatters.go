package sqlite

import (
	"time"
)

// dbTimeLayout is fixed-width so stored timestamps sort lexically.
const dbTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimeForDB formats a time.Time value in UTC with nanosecond precision
// for consistent database storage
func FormatTimeForDB(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

// ParseTimeFromDB parses an RFC3339 formatted time string from the database
func ParseTimeFromDB(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// BoolToDB stores a boolean as the INTEGER 0 or 1.
func BoolToDB(b bool) int {
	if b {
		return 1
	}
	return 0
}
