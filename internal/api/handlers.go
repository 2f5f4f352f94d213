package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// HealthHandler reports whether the store is reachable
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.HealthCheck(ctx, h.db); err != nil {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	health := NewHealthHandler(db)
	router.GET("/health", health.HealthCheck)
	router.GET("/api/health", health.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tokens := service.NewTokenService(cfg.JWTSecret)
	users := service.NewUserService(db)
	projection := service.NewProjectionBuilder(db)
	shortLinks := service.NewShortLinkService(db, redisClient)
	subscriptions := service.NewSubscriptionService(db)

	requireAuth := middleware.AuthMiddleware(tokens, users)
	optionalAuth := middleware.OptionalAuthMiddleware(tokens, users)

	recipeHandler := NewRecipeHandler(RecipeHandlerConfig{
		Recipes:         service.NewRecipeService(db, service.NewRecipeValidator(db)),
		Projection:      projection,
		Memberships:     service.NewMembershipService(db),
		ShoppingList:    service.NewShoppingListService(db),
		ShortLinks:      shortLinks,
		Authorizer:      service.AuthorOrAdmin{},
		RequireAuth:     requireAuth,
		OptionalAuth:    optionalAuth,
		CreateLimit:     middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RecipeCreationLimit),
		ModifyLimit:     middleware.NewRecipeModificationRateLimiter(redisClient, cfg.RecipeModificationLimit),
		PublicURL:       cfg.PublicURL,
		ShortLinkPrefix: cfg.ShortLinkPrefix,
	})
	referenceHandler := NewReferenceHandler(service.NewReferenceService(db))
	userHandler := NewUserHandler(users, subscriptions, projection, requireAuth, optionalAuth, cfg.PublicURL)
	shortLinkHandler := NewShortLinkHandler(shortLinks, cfg.FrontendURL, cfg.NotFoundURL)

	apiGroup := router.Group("/api")
	recipeHandler.RegisterRoutes(apiGroup)
	referenceHandler.RegisterRoutes(apiGroup)
	userHandler.RegisterRoutes(apiGroup)

	shortLinkHandler.RegisterRoutes(router, cfg.ShortLinkPrefix)
}
