package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/services"
)

// ReviewHandler serves the admin review queue.
type ReviewHandler struct {
	reviews *services.BundleReviewService
}

func NewReviewHandler(reviews *services.BundleReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) ListPending(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	pending, err := h.reviews.ListPending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *ReviewHandler) GetBundleDiff(c *gin.Context) {
	diff, err := h.reviews.Diff(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, diff)
}

func (h *ReviewHandler) ResolveSet(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.ResolveSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	card, err := h.reviews.ResolveSet(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *ReviewHandler) ResolveSeries(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.ResolveSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	card, err := h.reviews.ResolveSeries(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *ReviewHandler) ResolveColor(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.ResolveColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	card, err := h.reviews.ResolveColor(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *ReviewHandler) ResolvePlayer(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.ResolvePlayerRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	card, err := h.reviews.ResolvePlayer(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *ReviewHandler) ApproveBundle(c *gin.Context) {
	admin, ok := caller(c)
	if !ok {
		return
	}
	var req models.ReviewRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	result, err := h.reviews.Approve(c.Request.Context(), c.Param("id"), admin.ID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApproveCard retries one card that failed during its bundle's approval.
func (h *ReviewHandler) ApproveCard(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	result, err := h.reviews.ApproveCard(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReviewHandler) RejectBundle(c *gin.Context) {
	admin, ok := caller(c)
	if !ok {
		return
	}
	var req models.ReviewRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	result, err := h.reviews.Reject(c.Request.Context(), c.Param("id"), admin.ID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
