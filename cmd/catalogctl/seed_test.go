package main

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/testutil"
)

func openSeed(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open("testdata/catalog.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestSeedCatalog(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	report, err := seedCatalog(ctx, store, openSeed(t))
	require.NoError(t, err)
	assert.Equal(t, seedReport{Sets: 2, Series: 4, Teams: 3, Players: 2, PlayerTeams: 3, Colors: 2}, *report)

	sets, err := store.ListSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	for _, s := range sets {
		assert.Equal(t, 2, s.SeriesCount, s.Name)
		assert.NotNil(t, s.ManufacturerID)
	}

	links, err := store.ListPlayerTeams(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 3)
}

func TestSeedCatalogTwiceCreatesNothing(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := seedCatalog(ctx, store, openSeed(t))
	require.NoError(t, err)

	again, err := seedCatalog(ctx, store, openSeed(t))
	require.NoError(t, err)
	assert.Equal(t, seedReport{Skipped: 2 + 4 + 3 + 2 + 2}, *again)

	series, err := store.ListSeries(ctx)
	require.NoError(t, err)
	assert.Len(t, series, 4)
}

func TestSeedCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind apperrors.Kind
	}{
		{
			name: "unknown team",
			yaml: "players:\n  - name: Aaron Judge\n    teams: [New York Yankees]\n",
			kind: apperrors.KindValidation,
		},
		{
			name: "blank set name",
			yaml: "sets:\n  - name: \"  \"\n    year: 2024\n",
			kind: apperrors.KindValidation,
		},
		{
			name: "unknown field",
			yaml: "sets:\n  - name: 2024 Topps\n    yr: 2024\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewTestStore(t)
			ctx := context.Background()

			_, err := seedCatalog(ctx, store, strings.NewReader(tt.yaml))
			require.Error(t, err)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, apperrors.KindOf(err))
			}

			// a failed seed leaves nothing behind
			sets, err := store.ListSets(ctx)
			require.NoError(t, err)
			assert.Empty(t, sets)
		})
	}
}

func TestSeedCatalogEmptyFile(t *testing.T) {
	store := testutil.NewTestStore(t)

	report, err := seedCatalog(context.Background(), store, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, seedReport{}, *report)
}
