package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin/utils"
)

// GET /events/:id/attendance
func (h *handlers) getAttendance(c *gin.Context) {
	list, err := h.Repo.ListAttendanceByEvent(c.Request.Context(), c.Param("id"))
	respondList(c, list, err)
}

// GET /events/:id/roster
func (h *handlers) getRoster(c *gin.Context) {
	roster, err := h.Repo.Roster(c.Request.Context(), c.Param("id"))
	respondList(c, roster, err)
}

// PUT /events/:id/attendance/:personId
func (h *handlers) setPresence(c *gin.Context) {
	var req struct {
		Present *bool `json:"present" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	a, err := h.Repo.SetPresence(c.Request.Context(), c.Param("id"), c.Param("personId"), *req.Present)
	h.Metrics.ObservePresence(*req.Present, err)
	if err != nil {
		respondError(c, err)
		return
	}
	h.purge(c, utils.CacheEvents)
	c.JSON(http.StatusOK, a)
}
