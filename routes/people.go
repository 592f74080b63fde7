package routes

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"checkin/models"
	"checkin/photos"
	"checkin/utils"
)

type createPersonRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone"`
	EventID *string `json:"eventId"`
}

type updatePersonRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone"`
	EventID *string `json:"eventId"`
}

// GET /people
func (h *handlers) getPeople(c *gin.Context) {
	ctx := c.Request.Context()
	if eventID, ok := c.GetQuery("eventId"); ok {
		people, err := h.Repo.ListPeopleByEvent(ctx, eventID)
		respondList(c, people, err)
		return
	}
	people, err := h.Repo.ListPeople(ctx)
	respondList(c, people, err)
}

// GET /people/:id
func (h *handlers) getPerson(c *gin.Context) {
	p, found, err := h.Repo.GetPerson(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		respondError(c, models.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /people
func (h *handlers) createPerson(c *gin.Context) {
	var req createPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Repo.SavePerson(c.Request.Context(), models.PersonPatch{
		Name:    &req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		EventID: req.EventID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.purge(c, utils.CachePeople, utils.CacheEvents)
	c.JSON(http.StatusCreated, gin.H{"message": "person created!", "person": p})
}

// PUT /people/:id
func (h *handlers) updatePerson(c *gin.Context) {
	var req updatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Repo.SavePerson(c.Request.Context(), models.PersonPatch{
		ID:      c.Param("id"),
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		EventID: req.EventID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.purge(c, utils.CachePeople, utils.CacheEvents)
	c.JSON(http.StatusOK, gin.H{"message": "Person updated successfully!", "person": p})
}

// POST /people/:id/photo (multipart field "photo")
func (h *handlers) uploadPhoto(c *gin.Context) {
	if h.Photos == nil {
		respondError(c, models.ErrUnsupported)
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, found, err := h.Repo.GetPerson(ctx, id); err != nil {
		respondError(c, err)
		return
	} else if !found {
		respondError(c, models.ErrNotFound)
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		badRequest(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	key := photos.Key(id, filepath.Ext(fh.Filename), h.Now().UnixNano())
	uri, err := h.Photos.Put(ctx, key, f, fh.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := h.Repo.SetPhoto(ctx, id, uri)
	if err != nil {
		respondError(c, err)
		return
	}
	h.purge(c, utils.CachePeople, utils.CacheEvents)
	c.JSON(http.StatusOK, gin.H{"message": "Photo saved.", "person": p})
}
