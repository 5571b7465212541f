package calendar

import (
	"time"

	"github.com/MarcoPoloResearchLab/raduty/internal/dates"
	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

const daysPerWeek = 7

// CellKind distinguishes layout padding from day cells.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellDay
)

// Cell is one slot of the month grid.
type Cell struct {
	Kind       CellKind
	Day        int
	Date       string
	IsToday    bool
	IsSelected bool
	Records    []duties.Record
}

// Build lays out the month shown by cursor: leading empty cells for the weekday offset of
// day 1, then one cell per day holding the records whose date key matches exactly.
// Record dates are labels and are never converted between time zones.
func Build(cursor Cursor, records []duties.Record, selection Selection, today time.Time) []Cell {
	offset := dates.FirstWeekdayOffset(cursor.Year, cursor.Month)
	days := cursor.DaysInMonth()

	buckets := make(map[string][]duties.Record)
	for _, record := range records {
		if !cursor.Contains(record.Date) {
			continue
		}
		buckets[record.Date] = append(buckets[record.Date], record)
	}

	todayKey := dates.KeyOf(today)
	cells := make([]Cell, 0, offset+days)
	for index := 0; index < offset; index++ {
		cells = append(cells, Cell{Kind: CellEmpty})
	}
	for day := 1; day <= days; day++ {
		key := cursor.Key(day)
		cells = append(cells, Cell{
			Kind:       CellDay,
			Day:        day,
			Date:       key,
			IsToday:    key == todayKey,
			IsSelected: selection.IsSelected(cursor, day),
			Records:    buckets[key],
		})
	}
	return cells
}

// Weeks splits cells into rows of seven, padding the last row with empty cells.
func Weeks(cells []Cell) [][]Cell {
	weeks := make([][]Cell, 0, (len(cells)+daysPerWeek-1)/daysPerWeek)
	for start := 0; start < len(cells); start += daysPerWeek {
		end := start + daysPerWeek
		if end > len(cells) {
			end = len(cells)
		}
		week := make([]Cell, daysPerWeek)
		copy(week, cells[start:end])
		weeks = append(weeks, week)
	}
	return weeks
}

// DayCell returns the cell for day, if present.
func DayCell(cells []Cell, day int) (Cell, bool) {
	for _, cell := range cells {
		if cell.Kind == CellDay && cell.Day == day {
			return cell, true
		}
	}
	return Cell{}, false
}
