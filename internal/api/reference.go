package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ReferenceHandler serves the read-only ingredient and tag catalogues.
// Neither listing is paginated.
type ReferenceHandler struct {
	reference service.IReferenceService
}

func NewReferenceHandler(reference service.IReferenceService) *ReferenceHandler {
	return &ReferenceHandler{reference: reference}
}

func (h *ReferenceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ingredients", h.ListIngredients)
	router.GET("/ingredients/:id", h.GetIngredient)
	router.GET("/tags", h.ListTags)
	router.GET("/tags/:id", h.GetTag)
}

func (h *ReferenceHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.reference.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]types.IngredientResponse, 0, len(ingredients))
	for i := range ingredients {
		out = append(out, ingredientResponse(&ingredients[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReferenceHandler) GetIngredient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ingredient, err := h.reference.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredientResponse(ingredient))
}

func (h *ReferenceHandler) ListTags(c *gin.Context) {
	tags, err := h.reference.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]types.TagResponse, 0, len(tags))
	for i := range tags {
		out = append(out, tagResponse(&tags[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReferenceHandler) GetTag(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tag, err := h.reference.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tagResponse(tag))
}

func ingredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func tagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}
