package routes

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"checkin/calendar"
	"checkin/models"
	"checkin/utils"
)

type createEventRequest struct {
	Title       string     `json:"title" binding:"required"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
}

type updateEventRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
}

// GET /events
func (h *handlers) getEvents(c *gin.Context) {
	events, err := h.Repo.ListEvents(c.Request.Context())
	respondList(c, events, err)
}

// GET /events/:id
func (h *handlers) getEvent(c *gin.Context) {
	e, found, err := h.Repo.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		respondError(c, models.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, e)
}

// GET /events/:id/ics
func (h *handlers) getEventICS(c *gin.Context) {
	e, found, err := h.Repo.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		respondError(c, models.ErrNotFound)
		return
	}
	var buf bytes.Buffer
	if err := calendar.Write(&buf, h.Now(), []models.Event{e}, nil); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+e.ID+`.ics"`)
	c.Data(http.StatusOK, calendar.ContentType, buf.Bytes())
}

// POST /events
func (h *handlers) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e, err := h.Repo.SaveEvent(c.Request.Context(), models.EventPatch{
		Title:       &req.Title,
		Date:        req.Date,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.purge(c, utils.CacheEvents)
	c.JSON(http.StatusCreated, gin.H{"message": "event created!", "event": e})
}

// PUT /events/:id
func (h *handlers) updateEvent(c *gin.Context) {
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e, err := h.Repo.SaveEvent(c.Request.Context(), models.EventPatch{
		ID:          c.Param("id"),
		Title:       req.Title,
		Date:        req.Date,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.purge(c, utils.CacheEvents)
	c.JSON(http.StatusOK, gin.H{"message": "Event updated successfully!", "event": e})
}

// DELETE /events/:id
func (h *handlers) deleteEvent(c *gin.Context) {
	if err := h.Repo.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	h.purge(c, utils.CacheEvents)
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully!"})
}

// GET /events/:id/people
func (h *handlers) getEventPeople(c *gin.Context) {
	people, err := h.Repo.ListPeopleByEvent(c.Request.Context(), c.Param("id"))
	respondList(c, people, err)
}
