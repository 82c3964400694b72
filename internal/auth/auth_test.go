package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/cardcatalog/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner("test-secret", "cardcatalog")
	require.NoError(t, err)
	return s
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("", "x")
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	s := newSigner(t)
	tok, err := s.Issue(Identity{UserID: 42, Username: "collector", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	id, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id.UserID)
	assert.Equal(t, "collector", id.Username)
	assert.True(t, id.IsAdmin())
}

func TestParseRejects(t *testing.T) {
	s := newSigner(t)

	expired, err := s.Issue(Identity{UserID: 1}, -time.Minute)
	require.NoError(t, err)

	other, err := NewSigner("other-secret", "cardcatalog")
	require.NoError(t, err)
	foreign, err := other.Issue(Identity{UserID: 1}, time.Hour)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: "cardcatalog"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "abc", Issuer: "cardcatalog"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"alg none", noneAlg},
		{"non numeric subject", badSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestDefaultRoleIsContributor(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}}
	id, err := c.Identity()
	require.NoError(t, err)
	assert.Equal(t, models.RoleContributor, id.Role)
	assert.False(t, id.IsAdmin())
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 3})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(3), id.UserID)
}

func TestMiddleware(t *testing.T) {
	s := newSigner(t)
	contributor, err := s.Issue(Identity{UserID: 5, Role: models.RoleContributor}, time.Hour)
	require.NoError(t, err)
	admin, err := s.Issue(Identity{UserID: 9, Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(Middleware(s))
	router.GET("/me", func(c *gin.Context) {
		id, _ := Current(c)
		fromCtx, _ := FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "ctx_user_id": fromCtx.UserID})
	})
	router.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"contributor ok", "/me", "Bearer " + contributor, http.StatusOK},
		{"contributor on admin route", "/admin", "Bearer " + contributor, http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"user_id":5,"ctx_user_id":5}`, w.Body.String())
			}
		})
	}
}
