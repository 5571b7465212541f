package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/raduty/internal/dates"
)

const cursorLayout = "2006-01"

// ErrInvalidCursor indicates a month string that is not YYYY-MM.
var ErrInvalidCursor = errors.New("calendar: invalid month")

// Cursor is the displayed (year, month) pair.
type Cursor struct {
	Year  int
	Month time.Month
}

// CursorFor returns the cursor containing t, in t's own location.
func CursorFor(t time.Time) Cursor {
	return Cursor{Year: t.Year(), Month: t.Month()}
}

// ParseCursor reads a YYYY-MM month.
func ParseCursor(value string) (Cursor, error) {
	parsed, err := time.Parse(cursorLayout, strings.TrimSpace(value))
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %q", ErrInvalidCursor, value)
	}
	return CursorFor(parsed), nil
}

func (c Cursor) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, int(c.Month))
}

// Prev returns the previous month, rolling back over the year boundary.
func (c Cursor) Prev() Cursor {
	if c.Month == time.January {
		return Cursor{Year: c.Year - 1, Month: time.December}
	}
	return Cursor{Year: c.Year, Month: c.Month - 1}
}

// Next returns the following month, rolling over the year boundary.
func (c Cursor) Next() Cursor {
	if c.Month == time.December {
		return Cursor{Year: c.Year + 1, Month: time.January}
	}
	return Cursor{Year: c.Year, Month: c.Month + 1}
}

// DaysInMonth returns the number of days in the displayed month.
func (c Cursor) DaysInMonth() int {
	return dates.DaysInMonth(c.Year, c.Month)
}

// Key returns the date key of a day in the displayed month.
func (c Cursor) Key(day int) string {
	return dates.Key(c.Year, c.Month, day)
}

// ValidDay reports whether day exists in the displayed month.
func (c Cursor) ValidDay(day int) bool {
	return day >= 1 && day <= c.DaysInMonth()
}

// Contains reports whether a date key falls inside the displayed month.
func (c Cursor) Contains(key string) bool {
	return strings.HasPrefix(key, c.String()+"-") && dates.ValidKey(key)
}

// Range returns the first and last date keys of the displayed month.
func (c Cursor) Range() (string, string) {
	return c.Key(1), c.Key(c.DaysInMonth())
}
