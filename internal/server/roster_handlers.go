package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleListRAs(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(trimmedQuery(c, "include_inactive"))
	ras, err := h.roster.List(c.Request.Context(), includeInactive)
	if err != nil {
		h.writeRosterError(c, err)
		return
	}
	if ras == nil {
		ras = []roster.RA{}
	}
	c.JSON(http.StatusOK, ras)
}

func (h *httpHandler) handleGetRA(c *gin.Context) {
	id, ok := raIDParam(c)
	if !ok {
		return
	}
	ra, err := h.roster.Get(c.Request.Context(), id)
	if err != nil {
		h.writeRosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, ra)
}

func (h *httpHandler) handleCreateRA(c *gin.Context) {
	var profile roster.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	ra, err := h.roster.Create(c.Request.Context(), profile)
	if err != nil {
		h.writeRosterError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ra)
}

func (h *httpHandler) handleUpdateRA(c *gin.Context) {
	id, ok := raIDParam(c)
	if !ok {
		return
	}
	var profile roster.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	ra, err := h.roster.Update(c.Request.Context(), id, profile)
	if err != nil {
		h.writeRosterError(c, err)
		return
	}
	// a rename rewrites the RA name on existing duties.
	h.publishDutyChange(actionRoster)
	c.JSON(http.StatusOK, ra)
}

func (h *httpHandler) handleDeleteRA(c *gin.Context) {
	id, ok := raIDParam(c)
	if !ok {
		return
	}
	outcome, err := h.roster.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeRosterError(c, err)
		return
	}
	message := "RA deleted successfully"
	if outcome == roster.DeleteOutcomeDeactivated {
		message = "RA has assigned duties and was marked inactive"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "outcome": outcome})
}

func raIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_ra_id"})
		return 0, false
	}
	return id, true
}

func (h *httpHandler) writeRosterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roster.ErrNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "RA name is required"})
	case errors.Is(err, roster.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "RA not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "roster_request_failed"})
	}
}
