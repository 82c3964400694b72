package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/services"
	"github.com/codyseavey/cardcatalog/internal/testutil"
)

func newResolverFixture(t *testing.T) (*services.AutoResolver, *services.CatalogSnapshot, *testutil.Catalog) {
	t.Helper()
	store := testutil.NewTestStore(t)
	cat := testutil.SeedCatalog(t, store)

	snap, err := services.LoadCatalogSnapshot(context.Background(), store)
	require.NoError(t, err)

	cfg := testResolutionConfig()
	return services.NewAutoResolver(services.NewEntityMatcher(cfg), cfg), snap, cat
}

func TestResolveFullyMatchedCard(t *testing.T) {
	resolver, snap, cat := newResolverFixture(t)

	res := resolver.Resolve(snap, services.ResolveInput{
		SetName:    "2024 Topps",
		PlayerName: "Mike Trout",
		Year:       2024,
	})

	require.True(t, res.Set.Accepted)
	assert.Equal(t, cat.Topps2024.ID, *res.Set.ResolvedID())
	assert.Equal(t, 1.0, *res.Set.Confidence())

	require.True(t, res.Series.Accepted, "empty series name resolves to Base")
	assert.Equal(t, cat.Base2024.ID, *res.Series.ResolvedID())

	require.Len(t, res.Pairings, 1)
	p := res.Pairings[0]
	assert.True(t, p.Resolved)
	assert.Equal(t, cat.Angels.ID, *p.Team.ResolvedID(), "single association fills the team")
	assert.Equal(t, cat.TroutAngels.ID, *p.PlayerTeamID)
	assert.Equal(t, 1.0, p.Confidence)

	assert.True(t, res.FullyResolved)
	assert.False(t, res.RequiresNewSet)
	assert.False(t, res.RequiresNewSeries)
	assert.False(t, res.RequiresNewPlayer)
	assert.False(t, res.RequiresNewTeam)
	assert.Nil(t, res.Color)
}

func TestResolveUnknownSet(t *testing.T) {
	resolver, snap, cat := newResolverFixture(t)

	res := resolver.Resolve(snap, services.ResolveInput{
		SetName:    "1999 Fleer Ultra",
		PlayerName: "Mike Trout",
		Year:       1999,
	})

	assert.Nil(t, res.Set.Best)
	assert.Nil(t, res.Set.ResolvedID())
	assert.Nil(t, res.Set.Confidence())
	assert.Nil(t, res.Series.ResolvedID())
	assert.True(t, res.RequiresNewSet)
	assert.True(t, res.RequiresNewSeries)
	assert.False(t, res.FullyResolved)

	require.Len(t, res.Pairings, 1)
	assert.Equal(t, cat.TroutAngels.ID, *res.Pairings[0].PlayerTeamID, "players resolve independently of the set")
}

func TestResolveMultiPlayerCard(t *testing.T) {
	resolver, snap, cat := newResolverFixture(t)

	res := resolver.Resolve(snap, services.ResolveInput{
		SetName:    "2024 Topps",
		SeriesName: "Base",
		PlayerName: "Juan Soto / Aaron Judge",
		TeamName:   "Mets / Yankees",
		Year:       2024,
	})

	require.Len(t, res.Pairings, 2)
	assert.Equal(t, 1, res.Pairings[0].Position)
	assert.Equal(t, cat.SotoMets.ID, *res.Pairings[0].PlayerTeamID)
	assert.Equal(t, 2, res.Pairings[1].Position)
	assert.Equal(t, cat.JudgeYankees.ID, *res.Pairings[1].PlayerTeamID)
	assert.True(t, res.FullyResolved)
}

func TestResolveSetPrefersCardYear(t *testing.T) {
	resolver, snap, cat := newResolverFixture(t)

	tests := []struct {
		year int
		want uint
	}{
		{2024, cat.Topps2024.ID},
		{2023, cat.Topps2023.ID},
	}
	for _, tt := range tests {
		got := resolver.ResolveSet(snap, "Topps", tt.year)
		require.True(t, got.Accepted, tt.year)
		assert.Equal(t, tt.want, got.Best.CandidateID, tt.year)
		for _, c := range got.Candidates {
			assert.LessOrEqual(t, c.Confidence, got.Best.Confidence)
		}
	}
}

func TestResolveSeriesWithinSet(t *testing.T) {
	resolver, snap, cat := newResolverFixture(t)

	got := resolver.ResolveSeries(snap, cat.Topps2024.ID, "gold foil")
	require.True(t, got.Accepted)
	assert.Equal(t, cat.Gold2024.ID, got.Best.CandidateID)

	got = resolver.ResolveSeries(snap, cat.Topps2023.ID, "Gold Foil")
	assert.False(t, got.Accepted, "Gold Foil only exists in 2024 Topps")

	got = resolver.ResolveSeries(snap, cat.Topps2024.ID, "Gold")
	require.NotNil(t, got.Best)
	assert.Equal(t, cat.Gold2024.ID, got.Best.CandidateID)
	assert.False(t, got.Accepted)
	assert.Nil(t, got.ResolvedID())
}

func TestResolveColor(t *testing.T) {
	resolver, snap, cat := newResolverFixture(t)
	in := services.ResolveInput{SetName: "2024 Topps", PlayerName: "Mike Trout", Year: 2024}

	in.ColorName = "gold"
	res := resolver.Resolve(snap, in)
	require.NotNil(t, res.Color)
	assert.Equal(t, cat.Gold.ID, *res.Color.ResolvedID())
	assert.False(t, res.RequiresNewColor)

	in.ColorName = "Purple Wave"
	res = resolver.Resolve(snap, in)
	require.NotNil(t, res.Color)
	assert.Nil(t, res.Color.ResolvedID())
	assert.True(t, res.RequiresNewColor)
	assert.True(t, res.FullyResolved, "color is optional for full resolution")
}

func TestResolvePairingEdgeCases(t *testing.T) {
	resolver, snap, cat := newResolverFixture(t)
	team := func(s string) *string { return &s }

	t.Run("several associations without a team", func(t *testing.T) {
		p := resolver.ResolvePairing(snap, services.PlayerTeamPair{Position: 1, PlayerName: "Juan Soto"})
		assert.True(t, p.Player.Accepted)
		assert.Nil(t, p.Team.Best)
		assert.Nil(t, p.PlayerTeamID)
		assert.False(t, p.Resolved)
	})

	t.Run("known player and team never associated", func(t *testing.T) {
		p := resolver.ResolvePairing(snap, services.PlayerTeamPair{Position: 1, PlayerName: "Aaron Judge", TeamName: team("Mets")})
		assert.Equal(t, cat.Judge.ID, *p.Player.ResolvedID())
		assert.Equal(t, cat.Mets.ID, *p.Team.ResolvedID())
		assert.Nil(t, p.PlayerTeamID)
		assert.False(t, p.Resolved)
	})

	t.Run("ambiguous team prefers the association", func(t *testing.T) {
		p := resolver.ResolvePairing(snap, services.PlayerTeamPair{Position: 1, PlayerName: "Aaron Judge", TeamName: team("New York")})
		require.NotNil(t, p.Team.Best)
		assert.Equal(t, cat.Yankees.ID, p.Team.Best.CandidateID)
		assert.False(t, p.Team.Accepted)

		p = resolver.ResolvePairing(snap, services.PlayerTeamPair{Position: 1, PlayerName: "Juan Soto", TeamName: team("New York")})
		require.NotNil(t, p.Team.Best)
		assert.Equal(t, cat.Mets.ID, p.Team.Best.CandidateID)
	})

	t.Run("unknown player", func(t *testing.T) {
		res := resolver.Resolve(snap, services.ResolveInput{SetName: "2024 Topps", PlayerName: "Wander Franco", Year: 2024})
		assert.True(t, res.RequiresNewPlayer)
		assert.False(t, res.RequiresNewTeam)
		assert.False(t, res.FullyResolved)
	})

	t.Run("unknown team", func(t *testing.T) {
		res := resolver.Resolve(snap, services.ResolveInput{SetName: "2024 Topps", PlayerName: "Mike Trout", TeamName: "Salt Lake Bees", Year: 2024})
		assert.False(t, res.RequiresNewPlayer)
		assert.True(t, res.RequiresNewTeam)
		assert.False(t, res.FullyResolved)
	})
}

func TestResolveIsDeterministic(t *testing.T) {
	resolver, snap, _ := newResolverFixture(t)
	in := services.ResolveInput{
		SetName:    "Topps",
		SeriesName: "Gold",
		ColorName:  "Refractr",
		PlayerName: "Juan Soto / Aaron Judg",
		TeamName:   "New York",
		Year:       2024,
	}
	assert.Equal(t, resolver.Resolve(snap, in), resolver.Resolve(snap, in))
}

func TestResolveSameNamePlayers(t *testing.T) {
	dodgers := models.Team{ID: 10, Name: "Los Angeles Dodgers", City: "Los Angeles", Nickname: "Dodgers", Abbreviation: "LAD"}
	braves := models.Team{ID: 11, Name: "Atlanta Braves", City: "Atlanta", Nickname: "Braves", Abbreviation: "ATL"}
	snap := services.NewCatalogSnapshot(
		nil, nil,
		[]models.Player{{ID: 1, Name: "Will Smith"}, {ID: 2, Name: "Will Smith"}},
		[]models.Team{dodgers, braves},
		nil,
		[]models.PlayerTeam{
			{ID: 100, PlayerID: 1, TeamID: dodgers.ID},
			{ID: 200, PlayerID: 2, TeamID: braves.ID},
		},
	)
	cfg := testResolutionConfig()
	resolver := services.NewAutoResolver(services.NewEntityMatcher(cfg), cfg)

	tests := []struct {
		name         string
		team         *string
		wantResolved bool
		wantPlayer   uint
		wantPT       uint
	}{
		{name: "no team", team: nil},
		{name: "braves", team: str("Braves"), wantResolved: true, wantPlayer: 2, wantPT: 200},
		{name: "dodgers", team: str("Dodgers"), wantResolved: true, wantPlayer: 1, wantPT: 100},
		{name: "team neither played for", team: str("Yankees")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := resolver.ResolvePairing(snap, services.PlayerTeamPair{Position: 1, PlayerName: "Will Smith", TeamName: tt.team})

			assert.Equal(t, tt.wantResolved, p.Resolved)
			if !tt.wantResolved {
				assert.False(t, p.Player.Accepted)
				assert.True(t, p.Player.Ambiguous)
				assert.Nil(t, p.Player.ResolvedID())
				assert.Nil(t, p.PlayerTeamID)
				return
			}
			require.True(t, p.Player.Accepted)
			assert.False(t, p.Player.Ambiguous)
			assert.Equal(t, tt.wantPlayer, *p.Player.ResolvedID())
			require.NotNil(t, p.PlayerTeamID)
			assert.Equal(t, tt.wantPT, *p.PlayerTeamID)
		})
	}
}

func TestResolveSameNamePlayerNeedsReviewNotCreation(t *testing.T) {
	store := testutil.NewTestStore(t)
	cat := testutil.SeedCatalog(t, store)
	ctx := context.Background()
	other := models.Player{Name: "Mike Trout"}
	require.NoError(t, store.CreatePlayer(ctx, &other, true))
	_, _, err := store.EnsurePlayerTeam(ctx, other.ID, cat.Mets.ID)
	require.NoError(t, err)

	snap, err := services.LoadCatalogSnapshot(ctx, store)
	require.NoError(t, err)
	cfg := testResolutionConfig()
	resolver := services.NewAutoResolver(services.NewEntityMatcher(cfg), cfg)

	res := resolver.Resolve(snap, services.ResolveInput{SetName: "2024 Topps", PlayerName: "Mike Trout", Year: 2024})

	assert.False(t, res.FullyResolved)
	assert.False(t, res.RequiresNewPlayer, "both players exist; an admin picks one")
	require.Len(t, res.Pairings, 1)
	assert.True(t, res.Pairings[0].Player.Ambiguous)

	res = resolver.Resolve(snap, services.ResolveInput{SetName: "2024 Topps", PlayerName: "Mike Trout", TeamName: "Angels", Year: 2024})
	assert.True(t, res.FullyResolved)
	assert.Equal(t, cat.Trout.ID, *res.Pairings[0].Player.ResolvedID())
}
