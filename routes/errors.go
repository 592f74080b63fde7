package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin/middlewares"
	"checkin/models"
)

var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{models.ErrNotFound, http.StatusNotFound, "Not found."},
	{models.ErrConflict, http.StatusConflict, "Already exists."},
	{models.ErrWeakPassword, http.StatusBadRequest, models.ErrWeakPassword.Error()},
	{models.ErrValidation, http.StatusBadRequest, "Could not parse request data."},
	{models.ErrInvalidCredentials, http.StatusUnauthorized, "Could not authenticate user."},
	{models.ErrUnauthenticated, http.StatusUnauthorized, "Not authorized."},
	{models.ErrUnsupported, http.StatusNotImplemented, "Not supported by this backend."},
	{models.ErrStorageUnavailable, http.StatusServiceUnavailable, "Storage unavailable. Try again later."},
}

func statusOf(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.message
		}
	}
	return http.StatusInternalServerError, "Something went wrong. Try again later."
}

func respondError(c *gin.Context, err error) {
	status, msg := statusOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
}

// respondList renders a list read. A storage failure still answers 200 with
// the (empty) fallback and marks the response degraded.
func respondList(c *gin.Context, v any, err error) {
	if err != nil {
		if !errors.Is(err, models.ErrStorageUnavailable) {
			respondError(c, err)
			return
		}
		_ = c.Error(err)
		c.Header(middlewares.DegradedHeader, "storage-unavailable")
	}
	c.JSON(http.StatusOK, v)
}
