package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
)

func TestNewHTTPHandlerRequiresServices(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); err != errMissingDutyService {
		t.Fatalf("expected missing duty service error, got %v", err)
	}
}

func TestDutyListFiltersByNameAndRange(t *testing.T) {
	api := newTestAPI(t)

	recorder := api.do(t, http.MethodGet, "/api/duties", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	var all []dutyPayload
	decodeBody(t, recorder, &all)
	if len(all) != 4 || all[0].Date != "2025-03-28" || all[3].Date != "2025-04-01" {
		t.Fatalf("unexpected seeded duties %#v", all)
	}

	recorder = api.do(t, http.MethodGet, "/api/duties?ra=smith", nil)
	var filtered []dutyPayload
	decodeBody(t, recorder, &filtered)
	if len(filtered) != 1 || filtered[0].RAName != "Alex Smith" || filtered[0].RAID != 1 {
		t.Fatalf("unexpected filtered duties %#v", filtered)
	}

	recorder = api.do(t, http.MethodGet, "/api/duties?start_date=2025-03-29&end_date=2025-03-30", nil)
	var ranged []dutyPayload
	decodeBody(t, recorder, &ranged)
	if len(ranged) != 2 {
		t.Fatalf("expected 2 duties in range, got %#v", ranged)
	}

	recorder = api.do(t, http.MethodGet, "/api/duties?start_date=yesterday", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected malformed range to be rejected, got %d", recorder.Code)
	}
}

func TestDutyLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, cleanup := api.dispatcher.Subscribe(ctx, realtimeTopicDuties)
	defer cleanup()

	recorder := api.do(t, http.MethodPost, "/api/duties", map[string]string{
		"ra_name": "Taylor Wong",
		"date":    "2025-03-31",
		"shift":   "primary",
		"notes":   "Lobby",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var created dutyPayload
	decodeBody(t, recorder, &created)
	if created.ID != 5 || created.RAID != 3 || created.Shift != "Primary" {
		t.Fatalf("unexpected created duty %#v", created)
	}

	select {
	case message := <-events:
		if message.Action != actionCreated || len(message.DutyIDs) != 1 || message.DutyIDs[0] != created.ID {
			t.Fatalf("unexpected change event %#v", message)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a duty-change event")
	}

	recorder = api.do(t, http.MethodPut, "/api/duties/5", map[string]string{
		"ra_name": "Unlisted Helper",
		"date":    "2025-03-31",
		"shift":   "Tertiary",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var updated dutyPayload
	decodeBody(t, recorder, &updated)
	if updated.ID != 5 || updated.RAID != 0 || updated.RAName != "Unlisted Helper" || updated.Notes != "" {
		t.Fatalf("unexpected updated duty %#v", updated)
	}

	recorder = api.do(t, http.MethodGet, "/api/duties/5", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	recorder = api.do(t, http.MethodDelete, "/api/duties/5", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		recorder = api.do(t, method, "/api/duties/5", nil)
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s after delete, got %d", method, recorder.Code)
		}
	}
	recorder = api.do(t, http.MethodPut, "/api/duties/5", map[string]string{"ra_name": "A", "date": "2025-03-31", "shift": "Primary"})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for update after delete, got %d", recorder.Code)
	}
}

func TestDutyValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	testCases := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{name: "missing-name", body: map[string]string{"date": "2025-03-31", "shift": "Primary"}, field: "ra_name"},
		{name: "impossible-date", body: map[string]string{"ra_name": "A", "date": "2025-02-30", "shift": "Primary"}, field: "date"},
		{name: "unknown-shift", body: map[string]string{"ra_name": "A", "date": "2025-03-31", "shift": "Overnight"}, field: "shift"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := api.do(t, http.MethodPost, "/api/duties", testCase.body)
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", recorder.Code)
			}
			var payload struct {
				Fields []struct {
					Field string `json:"field"`
				} `json:"fields"`
			}
			decodeBody(t, recorder, &payload)
			if len(payload.Fields) == 0 || payload.Fields[0].Field != testCase.field {
				t.Fatalf("expected %s to be reported, got %s", testCase.field, recorder.Body.String())
			}
		})
	}

	recorder := api.do(t, http.MethodGet, "/api/duties/abc", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid id to be rejected, got %d", recorder.Code)
	}
}

func TestDutyFeedServesICalendar(t *testing.T) {
	api := newTestAPI(t)

	recorder := api.do(t, http.MethodGet, "/api/duties/calendar.ics?ra=wong", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.HasPrefix(recorder.Header().Get("Content-Type"), "text/calendar") {
		t.Fatalf("unexpected content type %q", recorder.Header().Get("Content-Type"))
	}
	cal, err := ical.ParseCalendar(strings.NewReader(recorder.Body.String()))
	if err != nil {
		t.Fatalf("failed to parse feed: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if start := events[0].GetProperty(ical.ComponentPropertyDtStart); start == nil || start.Value != "20250330" {
		t.Fatalf("unexpected start %#v", start)
	}
}
