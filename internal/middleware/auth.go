package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const viewerKey = "viewer"

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// UserEnsurer creates the local user row for a validated token
type UserEnsurer interface {
	EnsureUser(ctx context.Context, claims *types.TokenClaims) (*models.User, error)
}

// AuthMiddleware creates a middleware that requires a valid bearer token
func AuthMiddleware(validator TokenValidator, users UserEnsurer) gin.HandlerFunc {
	return authenticate(validator, users, true)
}

// OptionalAuthMiddleware authenticates the request when a token is present
// and lets anonymous requests through. A present but invalid token is
// still rejected.
func OptionalAuthMiddleware(validator TokenValidator, users UserEnsurer) gin.HandlerFunc {
	return authenticate(validator, users, false)
}

func authenticate(validator TokenValidator, users UserEnsurer, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if required {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
				c.Abort()
				return
			}
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		_, err = users.EnsureUser(c.Request.Context(), claims)
		if errors.Is(err, service.ErrUsernameTaken) {
			logging.Ctx(c.Request.Context()).Warn().Uint("user_id", claims.UserID).Str("username", claims.Username).Msg("token username held by another user")
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		if err != nil {
			logging.Ctx(c.Request.Context()).Error().Err(err).Uint("user_id", claims.UserID).Msg("failed to sync user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
			c.Abort()
			return
		}

		// Store user info in context
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set(viewerKey, &types.Viewer{UserID: claims.UserID, IsAdmin: claims.IsAdmin})
		c.Next()
	}
}

// ViewerFromContext returns the authenticated viewer, or nil for anonymous requests
func ViewerFromContext(c *gin.Context) *types.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(*types.Viewer); ok {
			return viewer
		}
	}
	return nil
}
