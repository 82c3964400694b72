package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/codyseavey/cardcatalog/internal/models"
)

// CatalogReader is the read side of the canonical store.
type CatalogReader interface {
	ListSets(ctx context.Context) ([]models.Set, error)
	ListSeries(ctx context.Context) ([]models.Series, error)
	ListPlayers(ctx context.Context) ([]models.Player, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	ListColors(ctx context.Context) ([]models.Color, error)
	ListPlayerTeams(ctx context.Context) ([]models.PlayerTeam, error)
}

// CatalogSnapshot is an immutable in-memory view of the canonical catalog,
// loaded once per request and shared by every card resolved in it.
type CatalogSnapshot struct {
	sets    map[uint]models.Set
	series  map[uint]models.Series
	players map[uint]models.Player
	teams   map[uint]models.Team
	colors  map[uint]models.Color

	setPool      []Candidate
	seriesPool   map[uint][]Candidate
	playerPool   []Candidate
	teamPool     []Candidate
	colorPool    []Candidate
	playerTeams  map[uint][]models.PlayerTeam
	associations map[[2]uint]uint
}

// LoadCatalogSnapshot reads the catalog tables in parallel.
func LoadCatalogSnapshot(ctx context.Context, r CatalogReader) (*CatalogSnapshot, error) {
	var (
		sets        []models.Set
		series      []models.Series
		players     []models.Player
		teams       []models.Team
		colors      []models.Color
		playerTeams []models.PlayerTeam
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { sets, err = r.ListSets(gctx); return })
	g.Go(func() (err error) { series, err = r.ListSeries(gctx); return })
	g.Go(func() (err error) { players, err = r.ListPlayers(gctx); return })
	g.Go(func() (err error) { teams, err = r.ListTeams(gctx); return })
	g.Go(func() (err error) { colors, err = r.ListColors(gctx); return })
	g.Go(func() (err error) { playerTeams, err = r.ListPlayerTeams(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewCatalogSnapshot(sets, series, players, teams, colors, playerTeams), nil
}

// NewCatalogSnapshot indexes already-loaded rows.
func NewCatalogSnapshot(sets []models.Set, series []models.Series, players []models.Player,
	teams []models.Team, colors []models.Color, playerTeams []models.PlayerTeam) *CatalogSnapshot {
	s := &CatalogSnapshot{
		sets:         make(map[uint]models.Set, len(sets)),
		series:       make(map[uint]models.Series, len(series)),
		players:      make(map[uint]models.Player, len(players)),
		teams:        make(map[uint]models.Team, len(teams)),
		colors:       make(map[uint]models.Color, len(colors)),
		seriesPool:   make(map[uint][]Candidate),
		playerTeams:  make(map[uint][]models.PlayerTeam),
		associations: make(map[[2]uint]uint, len(playerTeams)),
	}

	for _, set := range sets {
		s.sets[set.ID] = set
		s.setPool = append(s.setPool, Candidate{ID: set.ID, Name: set.Name})
	}
	for _, sr := range series {
		s.series[sr.ID] = sr
		s.seriesPool[sr.SetID] = append(s.seriesPool[sr.SetID], Candidate{ID: sr.ID, Name: sr.Name})
	}
	for _, p := range players {
		s.players[p.ID] = p
		s.playerPool = append(s.playerPool, Candidate{ID: p.ID, Name: p.Name})
	}
	for _, t := range teams {
		s.teams[t.ID] = t
		s.teamPool = append(s.teamPool, Candidate{ID: t.ID, Name: t.Name, Aliases: t.Aliases()})
	}
	for _, c := range colors {
		s.colors[c.ID] = c
		s.colorPool = append(s.colorPool, Candidate{ID: c.ID, Name: c.Name})
	}
	for _, pt := range playerTeams {
		s.playerTeams[pt.PlayerID] = append(s.playerTeams[pt.PlayerID], pt)
		s.associations[[2]uint{pt.PlayerID, pt.TeamID}] = pt.ID
	}
	return s
}

// Pool returns the candidate pool for a kind. Series pools are per set; use
// SeriesPool for those.
func (s *CatalogSnapshot) Pool(kind models.EntityKind) []Candidate {
	switch kind {
	case models.EntitySet:
		return s.setPool
	case models.EntityPlayer:
		return s.playerPool
	case models.EntityTeam:
		return s.teamPool
	case models.EntityColor:
		return s.colorPool
	case models.EntitySeries:
		var all []Candidate
		for _, pool := range s.seriesPool {
			all = append(all, pool...)
		}
		return all
	}
	return nil
}

func (s *CatalogSnapshot) SeriesPool(setID uint) []Candidate {
	return s.seriesPool[setID]
}

func (s *CatalogSnapshot) Set(id uint) (models.Set, bool) {
	v, ok := s.sets[id]
	return v, ok
}

func (s *CatalogSnapshot) Series(id uint) (models.Series, bool) {
	v, ok := s.series[id]
	return v, ok
}

func (s *CatalogSnapshot) Player(id uint) (models.Player, bool) {
	v, ok := s.players[id]
	return v, ok
}

func (s *CatalogSnapshot) Team(id uint) (models.Team, bool) {
	v, ok := s.teams[id]
	return v, ok
}

func (s *CatalogSnapshot) Color(id uint) (models.Color, bool) {
	v, ok := s.colors[id]
	return v, ok
}

// PlayerTeamID returns the association id for the pair.
func (s *CatalogSnapshot) PlayerTeamID(playerID, teamID uint) (uint, bool) {
	id, ok := s.associations[[2]uint{playerID, teamID}]
	return id, ok
}

// TeamsFor returns every team association of a player.
func (s *CatalogSnapshot) TeamsFor(playerID uint) []models.PlayerTeam {
	return s.playerTeams[playerID]
}
