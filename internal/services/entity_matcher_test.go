package services_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/services"
)

func testResolutionConfig() config.ResolutionConfig {
	return config.ResolutionConfig{
		ConfidenceThreshold: 0.95,
		MinSimilarity:       0.6,
		MaxCandidates:       5,
		Concurrency:         4,
		DefaultSeriesName:   "Base",
	}
}

func newMatcher() *services.EntityMatcher {
	return services.NewEntityMatcher(testResolutionConfig())
}

var playerPool = []services.Candidate{
	{ID: 1, Name: "Mike Trout"},
	{ID: 2, Name: "Juan Soto"},
	{ID: 3, Name: "Aaron Judge"},
	{ID: 4, Name: "José Ramírez"},
	{ID: 5, Name: "Shohei Ohtani"},
}

var teamPool = []services.Candidate{
	{ID: 10, Name: "New York Yankees", Aliases: []string{"Yankees", "New York Yankees", "NYY"}},
	{ID: 11, Name: "New York Mets", Aliases: []string{"Mets", "New York Mets", "NYM"}},
	{ID: 12, Name: "St. Louis Cardinals", Aliases: []string{"Cardinals", "St. Louis Cardinals", "STL"}},
}

func TestMatchConfidenceTiers(t *testing.T) {
	m := newMatcher()

	tests := []struct {
		name   string
		raw    string
		pool   []services.Candidate
		wantID uint
		want   float64
	}{
		{"exact", "Mike Trout", playerPool, 1, 1.0},
		{"exact case-insensitive", "mIKE tROUT", playerPool, 1, 1.0},
		{"exact with padding", "  Juan Soto ", playerPool, 2, 1.0},
		{"alias exact", "nyy", teamPool, 10, 1.0},
		{"diacritics", "Jose Ramirez", playerPool, 4, 0.98},
		{"punctuation", "Mike Trout.", playerPool, 1, 0.98},
		{"abbreviation", "Saint Louis Cardinals", teamPool, 12, 0.98},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.raw, tt.pool, models.EntityPlayer)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.wantID, got[0].CandidateID)
			assert.InDelta(t, tt.want, got[0].Confidence, 1e-9)
		})
	}
}

func TestMatchFuzzy(t *testing.T) {
	m := newMatcher()

	got := m.Match("Mike Trot", playerPool, models.EntityPlayer)
	require.NotEmpty(t, got)
	assert.Equal(t, uint(1), got[0].CandidateID)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-9)

	// Word order does not matter for the token score.
	got = m.Match("Trout Mike", playerPool, models.EntityPlayer)
	require.NotEmpty(t, got)
	assert.Equal(t, uint(1), got[0].CandidateID)
	assert.InDelta(t, 0.97, got[0].Confidence, 1e-9, "fuzzy scores are capped below the normalized tier")
}

func TestMatchBelowFloorIsEmpty(t *testing.T) {
	m := newMatcher()
	assert.Empty(t, m.Match("Wayne Gretzky", playerPool, models.EntityPlayer))
	assert.Empty(t, m.Match("", playerPool, models.EntityPlayer))
	assert.Empty(t, m.Match("Mike Trout", nil, models.EntityPlayer))
}

func TestMatchNumericMismatch(t *testing.T) {
	m := newMatcher()
	pool := []services.Candidate{{ID: 1, Name: "2023 Topps"}, {ID: 2, Name: "2024 Topps"}}

	got := m.Match("2024 Topps", pool, models.EntitySet)
	require.Len(t, got, 1, "a different year is not a near miss")
	assert.Equal(t, uint(2), got[0].CandidateID)
}

func TestMatchRankingAndTruncation(t *testing.T) {
	m := newMatcher()

	var pool []services.Candidate
	for i := 10; i > 0; i-- {
		pool = append(pool, services.Candidate{ID: uint(i), Name: "Gold"})
	}
	pool = append(pool, services.Candidate{ID: 99, Name: "Golden"})

	got := m.Match("gold", pool, models.EntityColor)
	require.Len(t, got, 5)
	for i, match := range got {
		assert.Equal(t, uint(i+1), match.CandidateID, "ties break on id")
		assert.Equal(t, 1.0, match.Confidence)
	}

	all := m.Search("gold", pool, models.EntityColor, 0)
	assert.Len(t, all, 11)
	assert.Equal(t, uint(99), all[10].CandidateID)
}

func TestMatchDeterministicAndBounded(t *testing.T) {
	m := newMatcher()
	inputs := []string{"Mike Trout", "mike", "J. Soto", "Aaron Judge Jr.", "Ohtani Shohei", "Yankees", "Ramírez José", "x"}

	for _, raw := range inputs {
		first := m.Match(raw, append(playerPool, teamPool...), models.EntityPlayer)
		second := m.Match(raw, append(playerPool, teamPool...), models.EntityPlayer)
		assert.Equal(t, first, second, raw)
		for _, match := range first {
			assert.GreaterOrEqual(t, match.Confidence, 0.0)
			assert.LessOrEqual(t, match.Confidence, 1.0)
		}
	}
}

func TestExactMatchAlwaysOne(t *testing.T) {
	m := newMatcher()
	for _, c := range append(playerPool, teamPool...) {
		for _, raw := range []string{c.Name, fmt.Sprintf(" %s ", c.Name)} {
			got := m.Match(raw, []services.Candidate{c}, models.EntityPlayer)
			require.Len(t, got, 1)
			assert.Equal(t, 1.0, got[0].Confidence, raw)
		}
	}
}
