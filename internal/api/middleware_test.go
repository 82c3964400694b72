package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/codyseavey/cardcatalog/internal/auth"
	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/models"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	router := gin.New()
	router.Use(requestID(), requestLogger(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, zapcore.DebugLevel, first.Level)
	assert.Equal(t, "abc-123", first.ContextMap()["request_id"])
	assert.Equal(t, int64(http.StatusOK), first.ContextMap()["status"])
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestRequestLoggerNilPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestLogger(nil))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserLimiter(t *testing.T) {
	l := newUserLimiter(config.RateLimitConfig{SubmissionsPerMinute: 1, Burst: 2})

	assert.True(t, l.allow(1))
	assert.True(t, l.allow(1))
	assert.False(t, l.allow(1))
	assert.True(t, l.allow(2), "buckets are per user")

	unlimited := newUserLimiter(config.RateLimitConfig{})
	for range 100 {
		require.True(t, unlimited.allow(1))
	}
}

func TestUserLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := newUserLimiter(config.RateLimitConfig{SubmissionsPerMinute: 1, Burst: 1})
	signer, err := auth.NewSigner("secret", "")
	require.NoError(t, err)
	token, err := signer.Issue(auth.Identity{UserID: 9, Role: models.RoleContributor}, time.Minute)
	require.NoError(t, err)

	router := gin.New()
	router.Use(auth.Middleware(signer), l.middleware())
	router.POST("/submit", func(c *gin.Context) { c.Status(http.StatusCreated) })

	submit := func() int {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusCreated, submit())
	assert.Equal(t, http.StatusTooManyRequests, submit())
}
