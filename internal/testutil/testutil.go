// Package testutil provides a migrated sqlite database and a small canonical
// catalog for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/database"
	"github.com/codyseavey/cardcatalog/internal/models"
)

// NewTestStore opens a fresh migrated sqlite database under t.TempDir().
func NewTestStore(t *testing.T) *database.Store {
	t.Helper()

	db, err := database.Open(context.Background(), config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	return database.NewStore(db)
}

// Catalog holds the ids of the seeded canonical rows.
type Catalog struct {
	Topps        models.Manufacturer
	MLB          models.Organization
	Topps2024    models.Set
	Topps2023    models.Set
	Chrome2024   models.Set
	Base2024     models.Series
	Gold2024     models.Series
	Base2023     models.Series
	ChromeBase   models.Series
	Angels       models.Team
	Mets         models.Team
	Yankees      models.Team
	Padres       models.Team
	Trout        models.Player
	Soto         models.Player
	Judge        models.Player
	Ohtani       models.Player
	TroutAngels  models.PlayerTeam
	SotoMets     models.PlayerTeam
	SotoPadres   models.PlayerTeam
	JudgeYankees models.PlayerTeam
	OhtaniAngels models.PlayerTeam
	Gold         models.Color
	Refractor    models.Color
}

// SeedCatalog inserts a small baseball catalog.
func SeedCatalog(t *testing.T, store *database.Store) *Catalog {
	t.Helper()
	ctx := context.Background()
	c := &Catalog{}

	topps, err := store.FirstOrCreateManufacturer(ctx, "Topps")
	require.NoError(t, err)
	c.Topps = *topps
	mlb, err := store.FirstOrCreateOrganization(ctx, "Major League Baseball", "MLB")
	require.NoError(t, err)
	c.MLB = *mlb

	c.Topps2024 = models.Set{Name: "2024 Topps", Year: 2024, ManufacturerID: &c.Topps.ID}
	c.Topps2023 = models.Set{Name: "2023 Topps", Year: 2023, ManufacturerID: &c.Topps.ID}
	c.Chrome2024 = models.Set{Name: "2024 Topps Chrome", Year: 2024, ManufacturerID: &c.Topps.ID}
	for _, s := range []*models.Set{&c.Topps2024, &c.Topps2023, &c.Chrome2024} {
		require.NoError(t, store.CreateSet(ctx, s))
	}

	c.Base2024 = models.Series{SetID: c.Topps2024.ID, Name: "Base"}
	c.Gold2024 = models.Series{SetID: c.Topps2024.ID, Name: "Gold Foil"}
	c.Base2023 = models.Series{SetID: c.Topps2023.ID, Name: "Base"}
	c.ChromeBase = models.Series{SetID: c.Chrome2024.ID, Name: "Base"}
	for _, s := range []*models.Series{&c.Base2024, &c.Gold2024, &c.Base2023, &c.ChromeBase} {
		require.NoError(t, store.CreateSeries(ctx, s))
	}

	orgID := &c.MLB.ID
	c.Angels = models.Team{Name: "Los Angeles Angels", City: "Los Angeles", Nickname: "Angels", Abbreviation: "LAA", OrganizationID: orgID}
	c.Mets = models.Team{Name: "New York Mets", City: "New York", Nickname: "Mets", Abbreviation: "NYM", OrganizationID: orgID}
	c.Yankees = models.Team{Name: "New York Yankees", City: "New York", Nickname: "Yankees", Abbreviation: "NYY", OrganizationID: orgID}
	c.Padres = models.Team{Name: "San Diego Padres", City: "San Diego", Nickname: "Padres", Abbreviation: "SD", OrganizationID: orgID}
	for _, team := range []*models.Team{&c.Angels, &c.Mets, &c.Yankees, &c.Padres} {
		require.NoError(t, store.CreateTeam(ctx, team))
	}

	c.Trout = models.Player{Name: "Mike Trout"}
	c.Soto = models.Player{Name: "Juan Soto"}
	c.Judge = models.Player{Name: "Aaron Judge"}
	c.Ohtani = models.Player{Name: "Shohei Ohtani"}
	for _, p := range []*models.Player{&c.Trout, &c.Soto, &c.Judge, &c.Ohtani} {
		require.NoError(t, store.CreatePlayer(ctx, p, false))
	}

	link := func(p models.Player, team models.Team) models.PlayerTeam {
		pt, _, err := store.EnsurePlayerTeam(ctx, p.ID, team.ID)
		require.NoError(t, err)
		return *pt
	}
	c.TroutAngels = link(c.Trout, c.Angels)
	c.SotoMets = link(c.Soto, c.Mets)
	c.SotoPadres = link(c.Soto, c.Padres)
	c.JudgeYankees = link(c.Judge, c.Yankees)
	c.OhtaniAngels = link(c.Ohtani, c.Angels)

	c.Gold = models.Color{Name: "Gold"}
	c.Refractor = models.Color{Name: "Refractor"}
	for _, color := range []*models.Color{&c.Gold, &c.Refractor} {
		require.NoError(t, store.CreateColor(ctx, color))
	}

	return c
}
