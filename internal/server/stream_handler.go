package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type dutyChangeEvent struct {
	Action    string  `json:"action"`
	DutyIDs   []int64 `json:"dutyIds"`
	Timestamp string  `json:"timestamp"`
	Source    string  `json:"source"`
}

type heartbeatEvent struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// handleDutyStream pushes duty-change events as server-sent events until the client leaves.
func (h *httpHandler) handleDutyStream(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, realtimeTopicDuties)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-stream:
			if !ok {
				return
			}
			ids := message.DutyIDs
			if ids == nil {
				ids = []int64{}
			}
			c.SSEvent(message.EventType, dutyChangeEvent{
				Action:    message.Action,
				DutyIDs:   ids,
				Timestamp: message.Timestamp.Format(time.RFC3339),
				Source:    realtimeSourceBackend,
			})
			c.Writer.Flush()
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, heartbeatEvent{
				Timestamp: tick.UTC().Format(time.RFC3339),
				Source:    realtimeSourceBackend,
			})
			c.Writer.Flush()
		}
	}
}
