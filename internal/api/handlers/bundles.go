package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/services"
)

type BundleHandler struct {
	submissions *services.SubmissionService
}

func NewBundleHandler(submissions *services.SubmissionService) *BundleHandler {
	return &BundleHandler{submissions: submissions}
}

// SubmitBundle accepts 1-100 cards, resolves them and answers with the
// per-card outcome.
func (h *BundleHandler) SubmitBundle(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req models.SubmitBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.submissions.Submit(c.Request.Context(), user, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BundleHandler) ListBundles(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	bundles, err := h.submissions.ListBundles(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if bundles == nil {
		bundles = []models.ProvisionalCardBundle{}
	}
	c.JSON(http.StatusOK, bundles)
}

func (h *BundleHandler) ListProvisionalCards(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	status := models.ProvisionalStatus(c.Query("status"))
	switch status {
	case "", models.ProvisionalPending, models.ProvisionalAutoResolved, models.ProvisionalApproved, models.ProvisionalRejected:
	default:
		badRequest(c, "status must be pending, auto_resolved, approved or rejected")
		return
	}

	cards, err := h.submissions.ListProvisionalCards(c.Request.Context(), user.ID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	if cards == nil {
		cards = []models.ProvisionalCard{}
	}
	c.JSON(http.StatusOK, cards)
}

// PreviewResolution resolves one card without storing anything.
func (h *BundleHandler) PreviewResolution(c *gin.Context) {
	var req models.SubmitCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	summary, err := h.submissions.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
