package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
)

// respondError maps service errors to HTTP responses. Validation errors
// are returned as the raw field map; anything unknown becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var cerr *service.ConflictError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, verr.Fields)
	case errors.As(err, &cerr):
		c.JSON(http.StatusBadRequest, gin.H{"error": cerr.Message})
	case errors.Is(err, service.ErrRecipeNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrIngredientNotFound),
		errors.Is(err, service.ErrTagNotFound),
		errors.Is(err, service.ErrShortLinkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOperationFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": service.ErrOperationFailed.Error()})
	}
}

// parseID reads a positive numeric path parameter. It writes a 404 and
// returns false when the parameter is not a valid id.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// currentUserID returns the authenticated user id set by the auth middleware
func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	id, ok := v.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return id, true
}
