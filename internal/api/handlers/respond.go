package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/auth"
	"github.com/codyseavey/cardcatalog/internal/models"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInvalidState, apperrors.KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error", "kind"} for classified errors. Anything else
// is logged and reported as an opaque internal error.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": "internal"})
		return
	}

	body := gin.H{"error": appErr.Message, "kind": appErr.Kind}
	if appErr.ExistingID != nil {
		body["existing_id"] = *appErr.ExistingID
	}
	c.JSON(StatusFor(appErr.Kind), body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": apperrors.KindValidation})
}

// bindOptionalJSON binds a body that may be absent.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// caller returns the authenticated identity as the moderation user row.
func caller(c *gin.Context) (models.User, bool) {
	id, ok := auth.Current(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "kind": "unauthorized"})
		return models.User{}, false
	}
	return models.User{ID: id.UserID, Username: id.Username, Role: id.Role}, true
}
