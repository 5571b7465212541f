package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/raduty/internal/reports"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *httpHandler) handleRADutyReport(c *gin.Context) {
	rows, err := h.reports.RADuties(c.Request.Context(), reportRange(c))
	if err != nil {
		h.writeReportError(c, err)
		return
	}
	if rows == nil {
		rows = []reports.RATotals{}
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleMonthlySummary(c *gin.Context) {
	year, ok := h.reportYear(c)
	if !ok {
		return
	}
	rows, err := h.reports.MonthlySummary(c.Request.Context(), year)
	if err != nil {
		h.writeReportError(c, err)
		return
	}
	if rows == nil {
		rows = []reports.MonthTotals{}
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleReportExport(c *gin.Context) {
	year, ok := h.reportYear(c)
	if !ok {
		return
	}
	buf, filename, err := h.reports.Workbook(c.Request.Context(), reportRange(c), year)
	if err != nil {
		h.writeReportError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func reportRange(c *gin.Context) reports.Range {
	return reports.Range{
		StartDate: trimmedQuery(c, "start_date"),
		EndDate:   trimmedQuery(c, "end_date"),
	}
}

func (h *httpHandler) reportYear(c *gin.Context) (int, bool) {
	raw := trimmedQuery(c, "year")
	if raw == "" {
		return h.clock().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_year"})
		return 0, false
	}
	return year, true
}

func (h *httpHandler) writeReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reports.ErrInvalidRange), errors.Is(err, reports.ErrInvalidYear):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report_failed"})
	}
}
