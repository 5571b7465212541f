// Package feed publishes duties as an iCalendar feed.
package feed

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/MarcoPoloResearchLab/raduty/internal/dates"
	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

const (
	productID = "-//raduty//RA duty calendar//EN"
	uidDomain = "raduty"
)

// Calendar builds one all-day VEVENT per duty. Records without a valid date are skipped.
func Calendar(records []duties.Record, generatedAt time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	stamp := generatedAt.UTC()
	for _, record := range records {
		year, month, day, err := dates.ParseKey(record.Date)
		if err != nil {
			continue
		}
		start := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

		event := cal.AddEvent(UID(record.ID))
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(start)
		event.SetAllDayEndAt(start.AddDate(0, 0, 1))
		event.SetSummary(fmt.Sprintf("%s (%s)", record.RAName, record.Shift))
		event.SetProperty(ical.ComponentPropertyCategories, record.Shift.String())
		if record.Notes != "" {
			event.SetDescription(record.Notes)
		}
	}
	return cal
}

// Write serializes the feed for records to w.
func Write(w io.Writer, records []duties.Record, generatedAt time.Time) error {
	_, err := io.WriteString(w, Calendar(records, generatedAt).Serialize())
	return err
}

// UID returns the stable event identifier of a duty.
func UID(id duties.DutyID) string {
	return fmt.Sprintf("duty-%s@%s", id, uidDomain)
}
