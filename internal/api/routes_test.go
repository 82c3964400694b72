package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/cardcatalog/internal/auth"
	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/services"
	"github.com/codyseavey/cardcatalog/internal/testutil"
)

type testServer struct {
	router      *gin.Engine
	cat         *testutil.Catalog
	contributor string
	admin       string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewTestStore(t)
	cat := testutil.SeedCatalog(t, store)

	cfg := &config.Config{
		Resolution: config.ResolutionConfig{ConfidenceThreshold: 0.95, MinSimilarity: 0.6, MaxCandidates: 5, Concurrency: 2, DefaultSeriesName: "Base"},
		Review:     config.ReviewConfig{AutoApproveMinPoints: 50, MinRejectNotes: 10, MaxReviewNotes: 2000},
		Points:     config.PointsConfig{PerApprovedCard: 2, PerRejectedBundle: 5},
		RateLimit:  config.RateLimitConfig{SubmissionsPerMinute: 1, Burst: 5},
	}
	matcher := services.NewEntityMatcher(cfg.Resolution)
	resolver := services.NewAutoResolver(matcher, cfg.Resolution)
	points := services.NewPointsService(cfg.Points, cfg.Review)
	reviews := services.NewBundleReviewService(store, resolver, points, cfg.Review)

	signer, err := auth.NewSigner("test-secret", "cardcatalog")
	require.NoError(t, err)
	contributor, err := signer.Issue(auth.Identity{UserID: 7, Username: "collector", Role: models.RoleContributor}, time.Hour)
	require.NoError(t, err)
	admin, err := signer.Issue(auth.Identity{UserID: 1, Username: "mod", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	router := SetupRouter(cfg, Services{
		Store:       store,
		Submissions: services.NewSubmissionService(store, resolver, reviews, points, cfg.Resolution),
		Reviews:     reviews,
		Catalog:     services.NewCatalogSearchService(store, matcher),
	}, signer)

	return &testServer{router: router, cat: cat, contributor: contributor, admin: admin}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	ExistingID *uint  `json:"existing_id"`
}

func bundleOf(cards ...models.SubmitCardRequest) models.SubmitBundleRequest {
	return models.SubmitBundleRequest{Cards: cards}
}

func trout(number string) models.SubmitCardRequest {
	return models.SubmitCardRequest{PlayerName: "Mike Trout", SetName: "2024 Topps", CardNumber: number, Year: 2024}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cardcat_http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/bundles", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/bundles", "nope", http.StatusUnauthorized},
		{"contributor on admin route", http.MethodGet, "/api/admin/bundles/pending", s.contributor, http.StatusForbidden},
		{"admin on admin route", http.MethodGet, "/api/admin/bundles/pending", s.admin, http.StatusOK},
		{"contributor on own route", http.MethodGet, "/api/bundles", s.contributor, http.StatusOK},
		{"unknown api route", http.MethodGet, "/api/nothing", s.contributor, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestSubmitReviewApproveFlow(t *testing.T) {
	s := newTestServer(t)

	card := trout("27")
	card.SeriesName = "Photo Variations"
	w := s.do(t, http.MethodPost, "/api/bundles", s.contributor, bundleOf(card))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	submitted := decode[models.SubmitBundleResponse](t, w)
	assert.Equal(t, models.BundleStatusPending, submitted.Status)
	assert.Equal(t, 1, submitted.NeedsReview)
	assert.True(t, submitted.RequiresNewSeries)
	assert.Equal(t, "1 card added, 1 pending review", submitted.Message)
	cardID := submitted.Cards[0].ProvisionalCardID

	w = s.do(t, http.MethodGet, "/api/admin/bundles/pending", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]models.PendingBundleSummary](t, w)
	require.Len(t, pending, 1)
	assert.Equal(t, submitted.BundleID, pending[0].ID)
	assert.Equal(t, "collector", pending[0].Username)

	w = s.do(t, http.MethodGet, "/api/admin/bundles/"+submitted.BundleID, s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	diff := decode[models.BundleDiff](t, w)
	require.Len(t, diff.Cards, 1)
	assert.False(t, diff.Cards[0].Fields[1].Accepted)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/provisional-cards/%d/resolve-series", cardID), s.admin,
		models.ResolveSeriesRequest{Name: "Photo Variations"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[models.ProvisionalCard](t, w)
	assert.Equal(t, models.ProvisionalAutoResolved, resolved.Status)

	w = s.do(t, http.MethodPost, "/api/admin/bundles/"+submitted.BundleID+"/approve", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approval := decode[models.ApprovalResult](t, w)
	assert.Equal(t, 1, approval.CardsCreated)
	assert.Empty(t, approval.Errors)

	w = s.do(t, http.MethodPost, "/api/admin/bundles/"+submitted.BundleID+"/approve", s.admin, models.ReviewRequest{Notes: "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state", decode[errorBody](t, w).Kind)

	w = s.do(t, http.MethodGet, "/api/collection", s.contributor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	coll := decode[models.CollectionResponse](t, w)
	require.Len(t, coll.Items, 1)
	assert.False(t, coll.Items[0].IsProvisional)
	assert.Equal(t, 1, coll.Stats.LinkedCards)
}

func TestResolvePlayerAndRejectRoutes(t *testing.T) {
	s := newTestServer(t)

	card := trout("5")
	card.PlayerName = "Juan Soto"
	w := s.do(t, http.MethodPost, "/api/bundles", s.contributor, bundleOf(card))
	require.Equal(t, http.StatusCreated, w.Code)
	submitted := decode[models.SubmitBundleResponse](t, w)

	w = s.do(t, http.MethodGet, "/api/provisional-cards?status=pending", s.contributor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cards := decode[[]models.ProvisionalCard](t, w)
	require.Len(t, cards, 1)
	require.Len(t, cards[0].Players, 1)
	pairingID := cards[0].Players[0].ID

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/provisional-players/%d/resolve", pairingID), s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "ambiguous team without a team_id")

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/provisional-players/%d/resolve", pairingID), s.admin,
		models.ResolvePlayerRequest{TeamID: &s.cat.Mets.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, s.cat.SotoMets.ID, *decode[models.ProvisionalCard](t, w).Players[0].ResolvedPlayerTeamID)

	w = s.do(t, http.MethodPost, "/api/admin/bundles/"+submitted.BundleID+"/reject", s.admin, models.ReviewRequest{Notes: "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decode[errorBody](t, w).Kind)

	w = s.do(t, http.MethodPost, "/api/admin/bundles/"+submitted.BundleID+"/reject", s.admin,
		models.ReviewRequest{Notes: "card photo does not match"})
	require.Equal(t, http.StatusOK, w.Code)
	rejection := decode[models.RejectionResult](t, w)
	assert.Equal(t, 1, rejection.CardsRejected)
	assert.Equal(t, 1, rejection.ItemsRemoved)

	w = s.do(t, http.MethodPost, "/api/admin/bundles/missing/reject", s.admin, models.ReviewRequest{Notes: "card photo does not match"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/provisional-cards/abc/resolve-set", s.admin, models.ResolveSetRequest{SetID: &s.cat.Topps2024.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/bundles", s.contributor, bundleOf())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/bundles", s.contributor, bundleOf(models.SubmitCardRequest{
		PlayerName: "Mike Trout", SetName: "2024 Topps", CardNumber: "1", Year: 1800,
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/bundles", s.contributor, bundleOf(trout("27")))
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, "/api/bundles", s.contributor, bundleOf(trout("27")))
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "duplicate", body.Kind)
	assert.NotNil(t, body.ExistingID)
}

func TestSubmitRateLimited(t *testing.T) {
	s := newTestServer(t)

	for i := range 5 {
		w := s.do(t, http.MethodPost, "/api/bundles", s.contributor, bundleOf(trout(fmt.Sprint(i+1))))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := s.do(t, http.MethodPost, "/api/bundles", s.contributor, bundleOf(trout("6")))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decode[errorBody](t, w).Kind)

	// Reads are not limited.
	w = s.do(t, http.MethodGet, "/api/bundles", s.contributor, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ProvisionalCardBundle](t, w), 5)
}

func TestPreviewAndCatalogSearch(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/resolve/preview", s.contributor, trout("27"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[models.CardResolutionSummary](t, w)
	assert.True(t, summary.FullyResolved)

	w = s.do(t, http.MethodGet, "/api/catalog/teams?q=NYY", s.contributor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[models.CatalogSearchResult](t, w)
	assert.Equal(t, models.EntityTeam, result.Kind)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, s.cat.Yankees.ID, result.Matches[0].CandidateID)

	w = s.do(t, http.MethodGet, "/api/catalog/sets?q=2024+Topps&limit=1", s.contributor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.CatalogSearchResult](t, w).Matches, 1)

	for _, path := range []string{"/api/catalog/stadiums?q=fenway", "/api/catalog/teams", "/api/catalog/teams?q=x&limit=-1"} {
		w = s.do(t, http.MethodGet, path, s.contributor, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, dirExists(dir))
	assert.False(t, dirExists(dir+"/missing"))
}
