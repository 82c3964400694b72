package services

import (
	"sort"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/textnorm"
)

const (
	exactConfidence      = 1.0
	normalizedConfidence = 0.98
	fuzzyCeiling         = 0.97
	numericMismatch      = 0.6

	normCacheSize = 4096
)

// Candidate is one canonical entity the matcher may pick.
type Candidate struct {
	ID      uint
	Name    string
	Aliases []string
}

// EntityMatcher ranks canonical candidates against free text. It is
// deterministic and safe for concurrent use; the normalization cache never
// changes results.
type EntityMatcher struct {
	minSimilarity float64
	maxCandidates int
	normCache     *lru.Cache[string, string]
}

func NewEntityMatcher(cfg config.ResolutionConfig) *EntityMatcher {
	cache, err := lru.New[string, string](normCacheSize)
	if err != nil {
		// Only fails for a non-positive size.
		panic(err)
	}
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 5
	}
	return &EntityMatcher{
		minSimilarity: cfg.MinSimilarity,
		maxCandidates: maxCandidates,
		normCache:     cache,
	}
}

// Match returns at most MaxCandidates matches for raw, best first. An empty
// result means nothing cleared the similarity floor.
func (m *EntityMatcher) Match(raw string, pool []Candidate, kind models.EntityKind) []models.EntityMatch {
	return m.Search(raw, pool, kind, m.maxCandidates)
}

// Search is Match with an explicit limit. limit <= 0 returns every match.
func (m *EntityMatcher) Search(raw string, pool []Candidate, _ models.EntityKind, limit int) []models.EntityMatch {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(pool) == 0 {
		return nil
	}
	normRaw := m.normalize(raw)

	matches := make([]models.EntityMatch, 0, len(pool))
	for _, c := range pool {
		best := m.score(raw, normRaw, c.Name)
		for _, alias := range c.Aliases {
			if s := m.score(raw, normRaw, alias); s > best {
				best = s
			}
		}
		best = clamp01(best)
		if best < m.minSimilarity {
			continue
		}
		matches = append(matches, models.EntityMatch{CandidateID: c.ID, Name: c.Name, Confidence: best})
	}

	SortMatches(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// SortMatches orders by confidence, then name, then id so ties are stable.
func SortMatches(matches []models.EntityMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.CandidateID < b.CandidateID
	})
}

func (m *EntityMatcher) score(raw, normRaw, name string) float64 {
	if name == "" {
		return 0
	}
	if strings.EqualFold(raw, strings.TrimSpace(name)) {
		return exactConfidence
	}
	normName := m.normalize(name)
	if normRaw == "" || normName == "" {
		return 0
	}
	if normRaw == normName {
		return normalizedConfidence
	}

	sim := max(levenshteinRatio(normRaw, normName), tokenDice(normRaw, normName))
	sim = min(sim, fuzzyCeiling)
	if numericTokensDiffer(normRaw, normName) {
		sim *= numericMismatch
	}
	return sim
}

func (m *EntityMatcher) normalize(s string) string {
	if v, ok := m.normCache.Get(s); ok {
		return v
	}
	v := textnorm.Normalize(s)
	m.normCache.Add(s, v)
	return v
}

// levenshteinRatio is 1 - distance / longer length, over runes.
func levenshteinRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

func levenshteinDistance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// tokenDice is the Sørensen-Dice coefficient over distinct tokens, so word
// order ("Trout Mike") does not matter.
func tokenDice(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// numericTokensDiffer is true when both sides carry numbers (years, series
// numbers) and they are not the same set of numbers.
func numericTokensDiffer(a, b string) bool {
	na, nb := textnorm.NumericTokens(a), textnorm.NumericTokens(b)
	if len(na) == 0 || len(nb) == 0 {
		return false
	}
	sa, sb := make(map[string]bool, len(na)), make(map[string]bool, len(nb))
	for _, t := range na {
		sa[t] = true
	}
	for _, t := range nb {
		sb[t] = true
	}
	if len(sa) != len(sb) {
		return true
	}
	for t := range sa {
		if !sb[t] {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
