package dates

import (
	"errors"
	"fmt"
	"time"
)

// KeyLayout is the canonical date key layout shared by calendar cells and duty records.
const KeyLayout = "2006-01-02"

const daysPerWeek = 7

// ErrInvalidKey indicates that a value is not a canonical YYYY-MM-DD calendar date.
var ErrInvalidKey = errors.New("dates: invalid date key")

// DaysInMonth returns the last day-of-month for the given year and month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekdayOffset returns the weekday (Sunday = 0) of the first day of the month.
func FirstWeekdayOffset(year int, month time.Month) int {
	return int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// WeekCount returns how many calendar rows are needed to tile the month.
func WeekCount(year int, month time.Month) int {
	cells := FirstWeekdayOffset(year, month) + DaysInMonth(year, month)
	return (cells + daysPerWeek - 1) / daysPerWeek
}

// Key formats a zero-padded YYYY-MM-DD key.
func Key(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// KeyOf returns the key of t in its own location.
func KeyOf(t time.Time) string {
	return Key(t.Year(), t.Month(), t.Day())
}

// ParseKey splits a canonical key back into its year, month and day.
func ParseKey(key string) (int, time.Month, int, error) {
	parsed, err := time.Parse(KeyLayout, key)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	year, month, day := parsed.Date()
	if year < 1 || Key(year, month, day) != key {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return year, month, day, nil
}

// ValidKey reports whether key is a canonical calendar date.
func ValidKey(key string) bool {
	_, _, _, err := ParseKey(key)
	return err == nil
}
