package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/raduty/internal/database"
	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/reports"
	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type testAPI struct {
	handler    http.Handler
	dispatcher *RealtimeDispatcher
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), database.Options{Seed: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	rosterService, err := roster.NewService(roster.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build roster service: %v", err)
	}
	dutyService, err := duties.NewService(duties.ServiceConfig{Database: db, Roster: rosterService})
	if err != nil {
		t.Fatalf("failed to build duty service: %v", err)
	}
	reportService, err := reports.NewService(reports.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build report service: %v", err)
	}

	dispatcher := NewRealtimeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		DutyService:       dutyService,
		RosterService:     rosterService,
		ReportService:     reportService,
		Realtime:          dispatcher,
		HeartbeatInterval: time.Hour,
		Clock: func() time.Time {
			return time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
		},
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return testAPI{handler: handler, dispatcher: dispatcher}
}

func (api testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	api.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}
