package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/raduty/internal/dates"
	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/feed"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	actionCreated = "created"
	actionUpdated = "updated"
	actionDeleted = "deleted"
	actionRoster  = "roster"
)

type dutyPayload struct {
	ID     int64  `json:"id"`
	RAID   int64  `json:"ra_id"`
	RAName string `json:"ra_name"`
	Date   string `json:"date"`
	Shift  string `json:"shift"`
	Notes  string `json:"notes"`
}

func newDutyPayload(row duties.Duty) dutyPayload {
	return dutyPayload{
		ID:     row.ID,
		RAID:   row.RAID,
		RAName: row.RAName,
		Date:   row.Date,
		Shift:  row.Shift,
		Notes:  row.Notes,
	}
}

func (h *httpHandler) handleListDuties(c *gin.Context) {
	rows, err := h.duties.List(c.Request.Context(), listQuery(c))
	if err != nil {
		h.writeDutyError(c, err)
		return
	}
	response := make([]dutyPayload, 0, len(rows))
	for _, row := range rows {
		response = append(response, newDutyPayload(row))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleGetDuty(c *gin.Context) {
	id, ok := dutyIDParam(c)
	if !ok {
		return
	}
	row, err := h.duties.Get(c.Request.Context(), id)
	if err != nil {
		h.writeDutyError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDutyPayload(row))
}

func (h *httpHandler) handleCreateDuty(c *gin.Context) {
	draft, ok := bindDraft(c)
	if !ok {
		return
	}
	row, err := h.duties.Create(c.Request.Context(), draft)
	if err != nil {
		h.writeDutyError(c, err)
		return
	}
	h.publishDutyChange(actionCreated, row.ID)
	c.JSON(http.StatusCreated, newDutyPayload(row))
}

func (h *httpHandler) handleUpdateDuty(c *gin.Context) {
	id, ok := dutyIDParam(c)
	if !ok {
		return
	}
	draft, ok := bindDraft(c)
	if !ok {
		return
	}
	row, err := h.duties.Update(c.Request.Context(), id, draft)
	if err != nil {
		h.writeDutyError(c, err)
		return
	}
	h.publishDutyChange(actionUpdated, row.ID)
	c.JSON(http.StatusOK, newDutyPayload(row))
}

func (h *httpHandler) handleDeleteDuty(c *gin.Context) {
	id, ok := dutyIDParam(c)
	if !ok {
		return
	}
	if err := h.duties.Delete(c.Request.Context(), id); err != nil {
		h.writeDutyError(c, err)
		return
	}
	h.publishDutyChange(actionDeleted, int64(id))
	c.JSON(http.StatusOK, gin.H{"message": "Duty deleted successfully"})
}

func (h *httpHandler) handleDutyFeed(c *gin.Context) {
	rows, err := h.duties.List(c.Request.Context(), listQuery(c))
	if err != nil {
		h.writeDutyError(c, err)
		return
	}
	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `inline; filename="duties.ics"`)
	c.Status(http.StatusOK)
	if err := feed.Write(c.Writer, duties.Records(rows), h.clock()); err != nil {
		h.logger.Error("failed to write duty feed", zap.Error(err))
	}
}

func listQuery(c *gin.Context) duties.ListQuery {
	return duties.ListQuery{
		RAName:    c.Query("ra"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
}

func dutyIDParam(c *gin.Context) (duties.DutyID, bool) {
	id, err := duties.NewDutyID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_duty_id"})
		return 0, false
	}
	return id, true
}

func bindDraft(c *gin.Context) (duties.Draft, bool) {
	var draft duties.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		if errors.Is(err, duties.ErrInvalidShift) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "RA name, date and shift are required",
				"code":   "invalid_draft",
				"fields": duties.NewFieldError(duties.FieldShift, "must be Primary, Secondary or Tertiary").Fields,
			})
			return duties.Draft{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return duties.Draft{}, false
	}
	return draft, true
}

func (h *httpHandler) writeDutyError(c *gin.Context, err error) {
	code := ""
	var serviceErr *duties.ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}

	var validationErr *duties.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "RA name, date and shift are required", "code": code, "fields": validationErr.Fields})
	case errors.Is(err, duties.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Duty not found", "code": code})
	case errors.Is(err, dates.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD", "code": code})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "duty_request_failed", "code": code})
	}
}

func trimmedQuery(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}
