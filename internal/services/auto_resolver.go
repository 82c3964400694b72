package services

import (
	"fmt"
	"strings"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/textnorm"
)

// Confidence multiplier for a set whose year disagrees with the card's year.
const yearMismatchPenalty = 0.9

// ResolveInput is the raw text of one card.
type ResolveInput struct {
	SetName    string
	SeriesName string
	ColorName  string
	PlayerName string
	TeamName   string
	Year       int
}

// FieldResolution is the outcome for one field. Best is the top candidate
// even when it falls short of the threshold; only accepted fields carry an id
// into storage.
type FieldResolution struct {
	Best       *models.EntityMatch
	Candidates []models.EntityMatch
	Accepted   bool
	// Ambiguous marks several candidates tied at an accepting confidence
	// with nothing to tell them apart. Such a field is not accepted.
	Ambiguous bool
}

// ResolvedID is the id to persist: nil unless accepted.
func (f FieldResolution) ResolvedID() *uint {
	if !f.Accepted || f.Best == nil {
		return nil
	}
	id := f.Best.CandidateID
	return &id
}

// Confidence is the best candidate's confidence, or nil when nothing matched.
func (f FieldResolution) Confidence() *float64 {
	if f.Best == nil {
		return nil
	}
	c := f.Best.Confidence
	return &c
}

func (f FieldResolution) Ref() models.ResolvedRef {
	ref := models.ResolvedRef{ID: f.ResolvedID(), Accepted: f.Accepted}
	if f.Best != nil {
		ref.Name = f.Best.Name
		ref.Confidence = f.Best.Confidence
	}
	return ref
}

// PairingResolution is the outcome for one parsed player/team slot.
type PairingResolution struct {
	PlayerTeamPair
	Player       FieldResolution
	Team         FieldResolution
	PlayerTeamID *uint
	Confidence   float64
	Resolved     bool
}

// Resolution is the full outcome for one card.
type Resolution struct {
	Set               FieldResolution
	Series            FieldResolution
	Color             *FieldResolution
	Pairings          []PairingResolution
	FullyResolved     bool
	RequiresNewSet    bool
	RequiresNewSeries bool
	RequiresNewColor  bool
	RequiresNewPlayer bool
	RequiresNewTeam   bool
}

// AutoResolver matches a card's raw fragments against a catalog snapshot.
// It never writes; the same input against the same snapshot always yields
// the same Resolution.
type AutoResolver struct {
	matcher           *EntityMatcher
	threshold         float64
	defaultSeriesName string
}

func NewAutoResolver(matcher *EntityMatcher, cfg config.ResolutionConfig) *AutoResolver {
	def := cfg.DefaultSeriesName
	if def == "" {
		def = "Base"
	}
	return &AutoResolver{matcher: matcher, threshold: cfg.ConfidenceThreshold, defaultSeriesName: def}
}

// Threshold is the auto-accept confidence.
func (r *AutoResolver) Threshold() float64 {
	return r.threshold
}

// Matcher exposes the matcher for catalog search.
func (r *AutoResolver) Matcher() *EntityMatcher {
	return r.matcher
}

func (r *AutoResolver) Resolve(snap *CatalogSnapshot, in ResolveInput) Resolution {
	var res Resolution

	res.Set = r.ResolveSet(snap, in.SetName, in.Year)
	res.RequiresNewSet = !res.Set.Accepted

	if res.Set.Accepted {
		res.Series = r.ResolveSeries(snap, res.Set.Best.CandidateID, in.SeriesName)
		res.RequiresNewSeries = !res.Series.Accepted
	} else {
		// Series matching waits for a set; it only certainly needs creating
		// when the set does.
		res.RequiresNewSeries = res.Set.Best == nil
	}

	if strings.TrimSpace(in.ColorName) != "" {
		color := r.resolveField(in.ColorName, snap.Pool(models.EntityColor), models.EntityColor)
		res.Color = &color
		res.RequiresNewColor = !color.Accepted
	}

	for _, pair := range ParsePlayerTeams(in.PlayerName, in.TeamName) {
		p := r.ResolvePairing(snap, pair)
		if !p.Player.Accepted && !p.Player.Ambiguous {
			res.RequiresNewPlayer = true
		}
		if p.TeamName != nil && !p.Team.Accepted {
			res.RequiresNewTeam = true
		}
		res.Pairings = append(res.Pairings, p)
	}

	res.FullyResolved = res.Set.Accepted && res.Series.Accepted && len(res.Pairings) > 0
	for _, p := range res.Pairings {
		res.FullyResolved = res.FullyResolved && p.Resolved
	}
	return res
}

// ResolveSet matches a set name, preferring sets from the card's year.
func (r *AutoResolver) ResolveSet(snap *CatalogSnapshot, name string, year int) FieldResolution {
	pool := snap.Pool(models.EntitySet)
	matches := r.matcher.Search(name, pool, models.EntitySet, 0)

	// "Topps" for a 2024 card should find "2024 Topps".
	if year > 0 && len(textnorm.NumericTokens(textnorm.Normalize(name))) == 0 {
		withYear := r.matcher.Search(fmt.Sprintf("%d %s", year, name), pool, models.EntitySet, 0)
		matches = mergeBest(matches, withYear)
	}

	if year > 0 {
		for i := range matches {
			set, ok := snap.Set(matches[i].CandidateID)
			if ok && set.Year != 0 && set.Year != year {
				matches[i].Confidence *= yearMismatchPenalty
			}
		}
	}
	SortMatches(matches)
	return r.finish(matches)
}

// ResolveSeries matches within one set. An empty name means the set's
// default series.
func (r *AutoResolver) ResolveSeries(snap *CatalogSnapshot, setID uint, name string) FieldResolution {
	if strings.TrimSpace(name) == "" {
		name = r.defaultSeriesName
	}
	return r.resolveField(name, snap.SeriesPool(setID), models.EntitySeries)
}

// ResolvePairing resolves one player/team slot. Without a team the player's
// only association is used; with several the pairing is left for review.
// Players sharing a name are told apart by the team; when the team cannot
// single one out the player is left for review.
func (r *AutoResolver) ResolvePairing(snap *CatalogSnapshot, pair PlayerTeamPair) PairingResolution {
	p := PairingResolution{PlayerTeamPair: pair}

	players := r.matcher.Search(pair.PlayerName, snap.Pool(models.EntityPlayer), models.EntityPlayer, 0)
	var teams []models.EntityMatch
	if pair.TeamName != nil {
		teams = r.matcher.Search(*pair.TeamName, snap.Pool(models.EntityTeam), models.EntityTeam, 0)
	}
	players, ambiguous := r.singleOutPlayer(snap, players, teams)
	p.Player = r.finish(players)
	if ambiguous {
		p.Player.Accepted = false
		p.Player.Ambiguous = true
	}

	if pair.TeamName != nil {
		if p.Player.Accepted {
			teams = preferAssociated(snap, p.Player.Best.CandidateID, teams)
		}
		p.Team = r.finish(teams)
	} else if p.Player.Accepted {
		if assoc := snap.TeamsFor(p.Player.Best.CandidateID); len(assoc) == 1 {
			team, ok := snap.Team(assoc[0].TeamID)
			if ok {
				best := models.EntityMatch{CandidateID: team.ID, Name: team.Name, Confidence: p.Player.Best.Confidence}
				p.Team = FieldResolution{Best: &best, Candidates: []models.EntityMatch{best}, Accepted: true}
			}
		}
	}

	switch {
	case p.Player.Best == nil:
		p.Confidence = 0
	case p.Team.Best == nil:
		p.Confidence = p.Player.Best.Confidence
	default:
		p.Confidence = min(p.Player.Best.Confidence, p.Team.Best.Confidence)
	}

	if p.Player.Accepted && p.Team.Accepted {
		if id, ok := snap.PlayerTeamID(p.Player.Best.CandidateID, p.Team.Best.CandidateID); ok {
			p.PlayerTeamID = &id
		}
	}
	p.Resolved = p.PlayerTeamID != nil && p.Confidence >= r.threshold
	return p
}

// singleOutPlayer handles players tied at the top with an accepting
// confidence. The one tied player associated with an accepted top team moves
// to the front; with no team, or zero or several such players, the result is
// ambiguous.
func (r *AutoResolver) singleOutPlayer(snap *CatalogSnapshot, players, teams []models.EntityMatch) ([]models.EntityMatch, bool) {
	tied := topTied(players)
	if tied < 2 || players[0].Confidence < r.threshold {
		return players, false
	}
	if len(teams) == 0 || teams[0].Confidence < r.threshold {
		return players, true
	}
	topTeams := teams[:topTied(teams)]

	winner := -1
	for i := range tied {
		for _, t := range topTeams {
			if _, ok := snap.PlayerTeamID(players[i].CandidateID, t.CandidateID); !ok {
				continue
			}
			if winner >= 0 {
				return players, true
			}
			winner = i
			break
		}
	}
	if winner < 0 {
		return players, true
	}

	out := append([]models.EntityMatch(nil), players...)
	chosen := out[winner]
	copy(out[1:winner+1], out[0:winner])
	out[0] = chosen
	return out, false
}

// topTied counts the leading matches that share the best confidence.
func topTied(matches []models.EntityMatch) int {
	n := 0
	for _, m := range matches {
		if m.Confidence != matches[0].Confidence {
			break
		}
		n++
	}
	return n
}

func (r *AutoResolver) resolveField(raw string, pool []Candidate, kind models.EntityKind) FieldResolution {
	return r.finish(r.matcher.Search(raw, pool, kind, 0))
}

// finish truncates already-ranked matches and applies the threshold.
func (r *AutoResolver) finish(matches []models.EntityMatch) FieldResolution {
	if limit := r.matcher.maxCandidates; len(matches) > limit {
		matches = matches[:limit]
	}
	if len(matches) == 0 {
		return FieldResolution{}
	}
	best := matches[0]
	return FieldResolution{
		Best:       &best,
		Candidates: matches,
		Accepted:   best.Confidence >= r.threshold,
	}
}

// mergeBest keeps the higher confidence per candidate.
func mergeBest(a, b []models.EntityMatch) []models.EntityMatch {
	idx := make(map[uint]int, len(a))
	out := append([]models.EntityMatch(nil), a...)
	for i, m := range out {
		idx[m.CandidateID] = i
	}
	for _, m := range b {
		if i, ok := idx[m.CandidateID]; ok {
			if m.Confidence > out[i].Confidence {
				out[i].Confidence = m.Confidence
			}
			continue
		}
		idx[m.CandidateID] = len(out)
		out = append(out, m)
	}
	return out
}

// preferAssociated moves a team the player actually played for ahead of
// equally scored teams, so "New York" on a Judge card lands on the Yankees.
func preferAssociated(snap *CatalogSnapshot, playerID uint, matches []models.EntityMatch) []models.EntityMatch {
	SortMatches(matches)
	if len(matches) < 2 {
		return matches
	}
	top := matches[0].Confidence
	for i, m := range matches {
		if m.Confidence < top {
			break
		}
		if _, ok := snap.PlayerTeamID(playerID, m.CandidateID); ok {
			if i > 0 {
				chosen := matches[i]
				copy(matches[1:i+1], matches[0:i])
				matches[0] = chosen
			}
			break
		}
	}
	return matches
}
