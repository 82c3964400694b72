package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/services"
)

type CollectionHandler struct {
	submissions *services.SubmissionService
}

func NewCollectionHandler(submissions *services.SubmissionService) *CollectionHandler {
	return &CollectionHandler{submissions: submissions}
}

// GetCollection lists the caller's collection. Entries from unreviewed
// bundles carry is_provisional and point at their provisional card.
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	resp, err := h.submissions.Collection(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp.Items == nil {
		resp.Items = []models.CollectionItem{}
	}

	// Optional filter
	if c.Query("provisional") == "true" {
		var items []models.CollectionItem
		for _, item := range resp.Items {
			if item.IsProvisional {
				items = append(items, item)
			}
		}
		if items == nil {
			items = []models.CollectionItem{}
		}
		resp.Items = items
	}

	c.JSON(http.StatusOK, resp)
}
