package calendar

import (
	"strings"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

// Visible returns the records whose RA name contains filterText, ignoring case.
// An empty filter returns records unchanged. The input is never modified.
func Visible(records []duties.Record, filterText string) []duties.Record {
	if filterText == "" {
		return records
	}
	needle := strings.ToLower(filterText)
	visible := make([]duties.Record, 0, len(records))
	for _, record := range records {
		if strings.Contains(strings.ToLower(record.RAName), needle) {
			visible = append(visible, record)
		}
	}
	return visible
}

// OnDate returns the records whose date equals key, preserving order.
func OnDate(records []duties.Record, key string) []duties.Record {
	matched := make([]duties.Record, 0)
	for _, record := range records {
		if record.Date == key {
			matched = append(matched, record)
		}
	}
	return matched
}
