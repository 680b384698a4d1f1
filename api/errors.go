package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

// writeError maps a service error to its HTTP status. Unexpected errors are
// logged and hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCapacity), errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

func writeDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
