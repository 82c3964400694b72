package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/inflection"

	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/services"
)

type CatalogHandler struct {
	search *services.CatalogSearchService
}

func NewCatalogHandler(search *services.CatalogSearchService) *CatalogHandler {
	return &CatalogHandler{search: search}
}

// SearchCatalog ranks canonical entities of one kind against ?q=. The kind is
// the plural path segment: sets, players, teams or colors.
func (h *CatalogHandler) SearchCatalog(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		badRequest(c, "query parameter 'q' is required")
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}

	kind := models.EntityKind(inflection.Singular(c.Param("kind")))
	result, err := h.search.Search(c.Request.Context(), kind, query, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
