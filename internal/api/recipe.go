package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeHandler serves recipes, their favorite and shopping cart
// memberships, the shopping list download and short links
type RecipeHandler struct {
	recipes      service.IRecipeService
	projection   service.IProjectionBuilder
	memberships  service.IMembershipService
	shoppingList service.IShoppingListService
	shortLinks   service.IShortLinkService
	authorizer   service.Authorizer

	requireAuth  gin.HandlerFunc
	optionalAuth gin.HandlerFunc
	createLimit  *middleware.RateLimiter
	modifyLimit  *middleware.RateLimiter

	publicURL       string
	shortLinkPrefix string
}

// RecipeHandlerConfig bundles RecipeHandler dependencies
type RecipeHandlerConfig struct {
	Recipes      service.IRecipeService
	Projection   service.IProjectionBuilder
	Memberships  service.IMembershipService
	ShoppingList service.IShoppingListService
	ShortLinks   service.IShortLinkService
	Authorizer   service.Authorizer

	RequireAuth  gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	CreateLimit  *middleware.RateLimiter
	ModifyLimit  *middleware.RateLimiter

	PublicURL       string
	ShortLinkPrefix string
}

func NewRecipeHandler(cfg RecipeHandlerConfig) *RecipeHandler {
	return &RecipeHandler{
		recipes:         cfg.Recipes,
		projection:      cfg.Projection,
		memberships:     cfg.Memberships,
		shoppingList:    cfg.ShoppingList,
		shortLinks:      cfg.ShortLinks,
		authorizer:      cfg.Authorizer,
		requireAuth:     cfg.RequireAuth,
		optionalAuth:    cfg.OptionalAuth,
		createLimit:     cfg.CreateLimit,
		modifyLimit:     cfg.ModifyLimit,
		publicURL:       strings.TrimRight(cfg.PublicURL, "/"),
		shortLinkPrefix: cfg.ShortLinkPrefix,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.optionalAuth, h.ListRecipes)
		recipes.GET("/download_shopping_cart", h.requireAuth, h.DownloadShoppingCart)
		recipes.GET("/:id", h.optionalAuth, h.GetRecipe)
		recipes.GET("/:id/get-link", h.GetLink)
		recipes.POST("", h.requireAuth, h.createLimit.RateLimitMiddleware(), h.CreateRecipe)
		recipes.PATCH("/:id", h.requireAuth, h.modifyLimit.PerRecipeRateLimitMiddleware(), h.UpdateRecipe)
		recipes.DELETE("/:id", h.requireAuth, h.modifyLimit.PerRecipeRateLimitMiddleware(), h.DeleteRecipe)
		recipes.POST("/:id/favorite", h.requireAuth, h.membershipAdd(models.FavoriteMembership))
		recipes.DELETE("/:id/favorite", h.requireAuth, h.membershipRemove(models.FavoriteMembership))
		recipes.POST("/:id/shopping_cart", h.requireAuth, h.membershipAdd(models.ShoppingCartMembership))
		recipes.DELETE("/:id/shopping_cart", h.requireAuth, h.membershipRemove(models.ShoppingCartMembership))
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	viewer := middleware.ViewerFromContext(c)
	page := readPageParams(c)

	filter := types.RecipeFilter{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
		Page:             page.Page,
		Limit:            page.Limit,
	}
	if author := c.Query("author"); author != "" {
		id, err := strconv.ParseUint(author, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"author": []string{"select a valid author id"}})
			return
		}
		authorID := uint(id)
		filter.AuthorID = &authorID
	}

	recipes, total, err := h.recipes.ListRecipes(c.Request.Context(), filter, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	rendered, err := h.projection.Render(c.Request.Context(), recipes, viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	next, previous := pageLinks(c, h.publicURL, page, total)
	c.JSON(http.StatusOK, types.Page[types.RecipeResponse]{
		Count:    total,
		Next:     next,
		Previous: previous,
		Results:  rendered,
	})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.renderRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.RecipeWriteRequest
	if !bindRecipe(c, &req) {
		return
	}

	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.renderRecipe(c, http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	recipe, ok := h.loadForModification(c)
	if !ok {
		return
	}

	var req types.RecipeWriteRequest
	if !bindRecipe(c, &req) {
		return
	}

	updated, err := h.recipes.UpdateRecipe(c.Request.Context(), recipe.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.renderRecipe(c, http.StatusOK, updated)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	recipe, ok := h.loadForModification(c)
	if !ok {
		return
	}

	// The cached token must go before the short link row does
	if err := h.shortLinks.Forget(c.Request.Context(), recipe.ID); err != nil {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Uint("recipe_id", recipe.ID).Msg("short link cache eviction failed")
	}

	if err := h.recipes.DeleteRecipe(c.Request.Context(), recipe.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// loadForModification fetches the recipe named in the path and checks the
// viewer may change it
func (h *RecipeHandler) loadForModification(c *gin.Context) (*models.Recipe, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	recipe, err := h.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !h.authorizer.CanModifyRecipe(middleware.ViewerFromContext(c), recipe) {
		respondError(c, service.ErrForbidden)
		return nil, false
	}
	return recipe, true
}

func (h *RecipeHandler) renderRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	resp, err := h.projection.RenderOne(c.Request.Context(), recipe, middleware.ViewerFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, resp)
}

func (h *RecipeHandler) membershipAdd(kind models.MembershipKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		recipeID, ok := parseID(c, "id")
		if !ok {
			return
		}

		recipe, err := h.memberships.Add(c.Request.Context(), kind, userID, recipeID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, service.ShortRecipe(recipe))
	}
}

func (h *RecipeHandler) membershipRemove(kind models.MembershipKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		recipeID, ok := parseID(c, "id")
		if !ok {
			return
		}

		if err := h.memberships.Remove(c.Request.Context(), kind, userID, recipeID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	items, err := h.shoppingList.Aggregate(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", h.shoppingList.Render(items))
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	token, err := h.shortLinks.GetOrCreateToken(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"short-link": fmt.Sprintf("%s/%s/%s", h.publicURL, h.shortLinkPrefix, token)})
}

// bindRecipe decodes the recipe payload. A value of the wrong JSON type
// (a negative id, a string amount) is left at its zero value, which the
// validator rejects under the field's own key, so type errors are reported
// together with every other problem. Only unparseable bodies stop here.
func bindRecipe(c *gin.Context, req *types.RecipeWriteRequest) bool {
	err := c.ShouldBindJSON(req)
	var typeErr *json.UnmarshalTypeError
	if err == nil || errors.As(err, &typeErr) {
		return true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON body"})
	return false
}

func queryFlag(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true":
		return true
	default:
		return false
	}
}
