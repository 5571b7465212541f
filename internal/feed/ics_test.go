package feed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

func TestWriteProducesAllDayEvents(t *testing.T) {
	records := []duties.Record{
		{ID: 1, RAName: "Alex Smith", Date: "2025-03-28", Shift: duties.ShiftSecondary, Notes: "Main entrance duty"},
		{ID: 3, RAName: "Taylor Wong", Date: "2025-03-30", Shift: duties.ShiftPrimary},
		{ID: 9, RAName: "Broken", Date: "2025-02-30", Shift: duties.ShiftPrimary},
	}

	var buf bytes.Buffer
	if err := Write(&buf, records, time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("failed to parse feed: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if uid := first.GetProperty(ical.ComponentPropertyUniqueId); uid == nil || uid.Value != UID(1) {
		t.Fatalf("unexpected uid %#v", uid)
	}
	if summary := first.GetProperty(ical.ComponentPropertySummary); summary == nil || summary.Value != "Alex Smith (Secondary)" {
		t.Fatalf("unexpected summary %#v", summary)
	}
	start := first.GetProperty(ical.ComponentPropertyDtStart)
	if start == nil || start.Value != "20250328" {
		t.Fatalf("expected all-day start 20250328, got %#v", start)
	}
	end := first.GetProperty(ical.ComponentPropertyDtEnd)
	if end == nil || end.Value != "20250329" {
		t.Fatalf("expected exclusive end 20250329, got %#v", end)
	}
	if description := events[1].GetProperty(ical.ComponentPropertyDescription); description != nil {
		t.Fatalf("expected no description without notes, got %#v", description)
	}
}
