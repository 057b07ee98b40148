package http

import (
	"errors"
	"net/http"

	domain "github.com/aq2208/goshop-api/internal/entity"
	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// writeError maps usecase errors onto the API's status classes. Both
// optimistic-locking failures surface as 409: version conflicts ask the
// client to retry with fresh state, stock shortfalls tell it the retry is
// pointless at current quantities.
func writeError(c *gin.Context, err error) {
	var stockErr *usecase.StockError

	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient_stock",
			"message":   stockErr.Error(),
			"productId": stockErr.ProductID,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.Is(err, usecase.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_stock", "message": err.Error()})
	case errors.Is(err, usecase.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "version_conflict", "message": err.Error()})
	case errors.Is(err, usecase.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_request", "message": err.Error()})
	case errors.Is(err, usecase.ErrEmptyCart),
		errors.Is(err, usecase.ErrInvalidQuantity),
		errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
	case errors.Is(err, usecase.ErrCartNotFound),
		errors.Is(err, usecase.ErrCartItemNotFound),
		errors.Is(err, usecase.ErrProductNotFound),
		errors.Is(err, usecase.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, usecase.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
