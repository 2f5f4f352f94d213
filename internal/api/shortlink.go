package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
)

// ShortLinkHandler redirects short tokens to the recipe page of the frontend
type ShortLinkHandler struct {
	shortLinks  service.IShortLinkService
	frontendURL string
	notFoundURL string
}

func NewShortLinkHandler(shortLinks service.IShortLinkService, frontendURL, notFoundURL string) *ShortLinkHandler {
	return &ShortLinkHandler{
		shortLinks:  shortLinks,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		notFoundURL: notFoundURL,
	}
}

// RegisterRoutes mounts the redirect under /{prefix}/:token
func (h *ShortLinkHandler) RegisterRoutes(router gin.IRoutes, prefix string) {
	router.GET("/"+strings.Trim(prefix, "/")+"/:token", h.Redirect)
}

func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	recipeID, err := h.shortLinks.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, service.ErrShortLinkNotFound) && h.notFoundURL != "" {
			c.Redirect(http.StatusFound, h.notFoundURL)
			return
		}
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusMovedPermanently, fmt.Sprintf("%s/recipes/%d/", h.frontendURL, recipeID))
}
