package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/reports"
	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultHeartbeatInterval = 25 * time.Second

var (
	errMissingDutyService   = errors.New("duty service dependency required")
	errMissingRosterService = errors.New("roster service dependency required")
	errMissingReportService = errors.New("report service dependency required")
)

type Dependencies struct {
	DutyService       *duties.Service
	RosterService     *roster.Service
	ReportService     *reports.Service
	Realtime          *RealtimeDispatcher
	AllowOrigins      []string
	HeartbeatInterval time.Duration
	Clock             func() time.Time
	Logger            *zap.Logger
}

// NewHTTPHandler builds the REST API served under /api.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.DutyService == nil {
		return nil, errMissingDutyService
	}
	if deps.RosterService == nil {
		return nil, errMissingRosterService
	}
	if deps.ReportService == nil {
		return nil, errMissingReportService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.AllowOrigins))

	handler := &httpHandler{
		duties:    deps.DutyService,
		roster:    deps.RosterService,
		reports:   deps.ReportService,
		realtime:  realtime,
		heartbeat: heartbeat,
		clock:     clock,
		logger:    logger,
	}

	api := router.Group("/api")
	api.GET("/duties", handler.handleListDuties)
	api.GET("/duties/stream", handler.handleDutyStream)
	api.GET("/duties/calendar.ics", handler.handleDutyFeed)
	api.GET("/duties/:id", handler.handleGetDuty)
	api.POST("/duties", handler.handleCreateDuty)
	api.PUT("/duties/:id", handler.handleUpdateDuty)
	api.DELETE("/duties/:id", handler.handleDeleteDuty)

	api.GET("/ras", handler.handleListRAs)
	api.GET("/ras/:id", handler.handleGetRA)
	api.POST("/ras", handler.handleCreateRA)
	api.PUT("/ras/:id", handler.handleUpdateRA)
	api.DELETE("/ras/:id", handler.handleDeleteRA)

	api.GET("/reports/ra-duties", handler.handleRADutyReport)
	api.GET("/reports/monthly-summary", handler.handleMonthlySummary)
	api.GET("/reports/export.xlsx", handler.handleReportExport)

	return router, nil
}

type httpHandler struct {
	duties    *duties.Service
	roster    *roster.Service
	reports   *reports.Service
	realtime  *RealtimeDispatcher
	heartbeat time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

func (h *httpHandler) publishDutyChange(action string, ids ...int64) {
	h.realtime.Publish(RealtimeMessage{
		Topic:     realtimeTopicDuties,
		EventType: RealtimeEventDutyChanged,
		Action:    action,
		DutyIDs:   ids,
		Timestamp: h.clock().UTC(),
	})
}
