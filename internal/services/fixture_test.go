package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/database"
	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/services"
	"github.com/codyseavey/cardcatalog/internal/testutil"
)

const adminID uint = 1

var collector = models.User{ID: 7, Username: "collector", Role: models.RoleContributor}

type fixture struct {
	store    *database.Store
	cat      *testutil.Catalog
	resolver *services.AutoResolver
	submit   *services.SubmissionService
	review   *services.BundleReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.NewTestStore(t))
}

// newFixtureOn seeds the shared test catalog into store and wires the
// services over it.
func newFixtureOn(t *testing.T, store *database.Store) *fixture {
	t.Helper()
	cat := testutil.SeedCatalog(t, store)

	resCfg := testResolutionConfig()
	reviewCfg := config.ReviewConfig{AutoApproveMinPoints: 50, MinRejectNotes: 10, MaxReviewNotes: 2000}
	points := services.NewPointsService(config.PointsConfig{PerApprovedCard: 2, PerRejectedBundle: 5}, reviewCfg)
	resolver := services.NewAutoResolver(services.NewEntityMatcher(resCfg), resCfg)
	review := services.NewBundleReviewService(store, resolver, points, reviewCfg)

	return &fixture{
		store:    store,
		cat:      cat,
		resolver: resolver,
		submit:   services.NewSubmissionService(store, resolver, review, points, resCfg),
		review:   review,
	}
}

func troutCard(number string) models.SubmitCardRequest {
	return models.SubmitCardRequest{
		PlayerName: "Mike Trout",
		SetName:    "2024 Topps",
		CardNumber: number,
		Year:       2024,
	}
}

func (f *fixture) submitCards(t *testing.T, user models.User, cards ...models.SubmitCardRequest) *models.SubmitBundleResponse {
	t.Helper()
	resp, err := f.submit.Submit(context.Background(), user, &models.SubmitBundleRequest{Cards: cards})
	require.NoError(t, err)
	return resp
}

func (f *fixture) givePoints(t *testing.T, user models.User, points int) {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.EnsureUser(ctx, user.ID, user.Username, user.Role)
	require.NoError(t, err)
	_, err = f.store.AdjustUserPoints(ctx, user.ID, points)
	require.NoError(t, err)
}

func (f *fixture) userPoints(t *testing.T, id uint) int {
	t.Helper()
	user, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return user.Points
}

func (f *fixture) bundle(t *testing.T, id string) *models.ProvisionalCardBundle {
	t.Helper()
	b, err := f.store.GetBundle(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) countCards(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.store.DB().Model(&models.Card{}).Count(&n).Error)
	return n
}
