package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

const genericFailure = "Could not complete request. Please try again."

func respondError(c *gin.Context, err error) {
	var verr *entity.ValidationError
	var serr *entity.StockError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "messages": verr.Messages})
	case errors.As(err, &serr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      serr.Error(),
			"listing_id": serr.ListingID,
			"available":  serr.Available,
		})
	case errors.Is(err, entity.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": entity.ErrUnauthenticated.Error()})
	case errors.Is(err, entity.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": entity.ErrUnauthorized.Error()})
	case errors.Is(err, entity.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": entity.ErrNotFound.Error()})
	case errors.Is(err, entity.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrInsufficientStock),
		errors.Is(err, entity.ErrEmptyCart),
		errors.Is(err, entity.ErrDuplicateAccount):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": genericFailure})
	case errors.Is(err, entity.ErrRetryable):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": genericFailure})
	default:
		slog.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
	}
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, &entity.ValidationError{Messages: []string{msg}})
}
