package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"checkin/middlewares"
	"checkin/models"
)

type accountView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewOf(a models.Account) accountView {
	return accountView{ID: a.ID, Name: a.Name, Email: a.Email, CreatedAt: a.CreatedAt}
}

// POST /signup
func (h *handlers) signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := models.ValidatePassword(req.Password); err != nil {
		respondError(c, err)
		return
	}

	a := models.Account{Name: strings.TrimSpace(req.Name), Email: strings.TrimSpace(req.Email), Password: req.Password}
	if err := h.Accounts.Create(c.Request.Context(), &a); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user created successfully", "user": viewOf(a)})
}

// POST /login
func (h *handlers) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	a, err := h.Accounts.ValidateCredentials(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.Signer.Generate(a.Email, a.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful!", "token": token, "user": viewOf(a)})
}

// GET /account
func (h *handlers) getAccount(c *gin.Context) {
	a, err := h.Accounts.GetByID(c.Request.Context(), c.GetString(middlewares.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(a))
}

// PUT /account/password
func (h *handlers) changePassword(c *gin.Context) {
	var req struct {
		Current  string `json:"currentPassword" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	a, err := h.Accounts.GetByID(ctx, c.GetString(middlewares.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := h.Accounts.ValidateCredentials(ctx, a.Email, req.Current); err != nil {
		respondError(c, err)
		return
	}
	if err := models.ValidatePassword(req.Password); err != nil {
		respondError(c, err)
		return
	}
	if err := h.Accounts.UpdatePassword(ctx, a.ID, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated."})
}
