package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserHandler serves user profiles and subscriptions
type UserHandler struct {
	users         service.IUserService
	subscriptions service.ISubscriptionService
	projection    service.IProjectionBuilder
	requireAuth   gin.HandlerFunc
	optionalAuth  gin.HandlerFunc
	publicURL     string
}

func NewUserHandler(
	users service.IUserService,
	subscriptions service.ISubscriptionService,
	projection service.IProjectionBuilder,
	requireAuth, optionalAuth gin.HandlerFunc,
	publicURL string,
) *UserHandler {
	return &UserHandler{
		users:         users,
		subscriptions: subscriptions,
		projection:    projection,
		requireAuth:   requireAuth,
		optionalAuth:  optionalAuth,
		publicURL:     publicURL,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("/me", h.requireAuth, h.Me)
		users.GET("/subscriptions", h.requireAuth, h.ListSubscriptions)
		users.GET("/:id", h.optionalAuth, h.GetUser)
		users.POST("/:id/subscribe", h.requireAuth, h.Subscribe)
		users.DELETE("/:id/subscribe", h.requireAuth, h.Unsubscribe)
	}
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	h.renderUser(c, userID)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.renderUser(c, id)
}

func (h *UserHandler) renderUser(c *gin.Context, id uint) {
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.projection.RenderUser(c.Request.Context(), user, middleware.ViewerFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) ListSubscriptions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page := readPageParams(c)

	out, total, err := h.subscriptions.ListSubscriptions(c.Request.Context(), userID, page.Page, page.Limit, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	next, previous := pageLinks(c, h.publicURL, page, total)
	c.JSON(http.StatusOK, types.Page[types.SubscriptionResponse]{
		Count:    total,
		Next:     next,
		Previous: previous,
		Results:  out,
	})
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	authorID, ok := parseID(c, "id")
	if !ok {
		return
	}

	author, err := h.subscriptions.Subscribe(c.Request.Context(), userID, authorID)
	if err != nil {
		respondError(c, err)
		return
	}

	described, err := h.subscriptions.Describe(c.Request.Context(), []models.User{*author}, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, described[0])
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	authorID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.subscriptions.Unsubscribe(c.Request.Context(), userID, authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipesLimit reads ?recipes_limit; a missing or invalid value means no limit
func recipesLimit(c *gin.Context) int {
	v, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || v < 0 {
		return -1
	}
	return v
}
