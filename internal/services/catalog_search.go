package services

import (
	"context"
	"strings"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/models"
)

const maxSearchResults = 50

// CatalogSearchService ranks canonical entities for admin lookups, using the
// same matcher the resolver uses.
type CatalogSearchService struct {
	reader  CatalogReader
	matcher *EntityMatcher
}

func NewCatalogSearchService(reader CatalogReader, matcher *EntityMatcher) *CatalogSearchService {
	return &CatalogSearchService{reader: reader, matcher: matcher}
}

func (s *CatalogSearchService) Search(ctx context.Context, kind models.EntityKind, query string, limit int) (*models.CatalogSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Validation("q is required")
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	pool, err := s.pool(ctx, kind)
	if err != nil {
		return nil, err
	}

	matches := s.matcher.Search(query, pool, kind, 0)
	total := len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []models.EntityMatch{}
	}
	return &models.CatalogSearchResult{Kind: kind, Query: query, Matches: matches, TotalCount: total}, nil
}

func (s *CatalogSearchService) pool(ctx context.Context, kind models.EntityKind) ([]Candidate, error) {
	var pool []Candidate
	switch kind {
	case models.EntitySet:
		sets, err := s.reader.ListSets(ctx)
		if err != nil {
			return nil, err
		}
		for _, set := range sets {
			pool = append(pool, Candidate{ID: set.ID, Name: set.Name})
		}
	case models.EntityPlayer:
		players, err := s.reader.ListPlayers(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range players {
			pool = append(pool, Candidate{ID: p.ID, Name: p.Name})
		}
	case models.EntityTeam:
		teams, err := s.reader.ListTeams(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range teams {
			pool = append(pool, Candidate{ID: t.ID, Name: t.Name, Aliases: t.Aliases()})
		}
	case models.EntityColor:
		colors, err := s.reader.ListColors(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range colors {
			pool = append(pool, Candidate{ID: c.ID, Name: c.Name})
		}
	default:
		return nil, apperrors.Validation("unknown catalog kind %q", kind)
	}
	return pool, nil
}
