package database

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/textnorm"
)

// Reads

func (s *Store) ListSets(ctx context.Context) ([]models.Set, error) {
	var sets []models.Set
	if err := s.conn(ctx).Order("id").Find(&sets).Error; err != nil {
		return nil, eris.Wrap(err, "database: list sets")
	}
	return sets, nil
}

// ListSeries returns every series across all sets.
func (s *Store) ListSeries(ctx context.Context) ([]models.Series, error) {
	var series []models.Series
	if err := s.conn(ctx).Order("set_id, id").Find(&series).Error; err != nil {
		return nil, eris.Wrap(err, "database: list series")
	}
	return series, nil
}

func (s *Store) ListSeriesBySet(ctx context.Context, setID uint) ([]models.Series, error) {
	var series []models.Series
	if err := s.conn(ctx).Where("set_id = ?", setID).Order("id").Find(&series).Error; err != nil {
		return nil, eris.Wrapf(err, "database: list series for set %d", setID)
	}
	return series, nil
}

func (s *Store) ListPlayers(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := s.conn(ctx).Order("id").Find(&players).Error; err != nil {
		return nil, eris.Wrap(err, "database: list players")
	}
	return players, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := s.conn(ctx).Order("id").Find(&teams).Error; err != nil {
		return nil, eris.Wrap(err, "database: list teams")
	}
	return teams, nil
}

func (s *Store) ListColors(ctx context.Context) ([]models.Color, error) {
	var colors []models.Color
	if err := s.conn(ctx).Order("id").Find(&colors).Error; err != nil {
		return nil, eris.Wrap(err, "database: list colors")
	}
	return colors, nil
}

func (s *Store) ListPlayerTeams(ctx context.Context) ([]models.PlayerTeam, error) {
	var pts []models.PlayerTeam
	if err := s.conn(ctx).Order("id").Find(&pts).Error; err != nil {
		return nil, eris.Wrap(err, "database: list player teams")
	}
	return pts, nil
}

func (s *Store) GetSet(ctx context.Context, id uint) (*models.Set, error) {
	var set models.Set
	if err := s.conn(ctx).First(&set, id).Error; err != nil {
		return nil, notFoundOr(err, "set", id, "get set")
	}
	return &set, nil
}

func (s *Store) GetSeries(ctx context.Context, id uint) (*models.Series, error) {
	var series models.Series
	if err := s.conn(ctx).First(&series, id).Error; err != nil {
		return nil, notFoundOr(err, "series", id, "get series")
	}
	return &series, nil
}

func (s *Store) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	if err := s.conn(ctx).First(&player, id).Error; err != nil {
		return nil, notFoundOr(err, "player", id, "get player")
	}
	return &player, nil
}

func (s *Store) GetTeam(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	if err := s.conn(ctx).First(&team, id).Error; err != nil {
		return nil, notFoundOr(err, "team", id, "get team")
	}
	return &team, nil
}

func (s *Store) GetColor(ctx context.Context, id uint) (*models.Color, error) {
	var color models.Color
	if err := s.conn(ctx).First(&color, id).Error; err != nil {
		return nil, notFoundOr(err, "color", id, "get color")
	}
	return &color, nil
}

func (s *Store) GetCard(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	err := s.conn(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&card, id).Error
	if err != nil {
		return nil, notFoundOr(err, "card", id, "get card")
	}
	return &card, nil
}

// FindPlayerTeam returns the association for the pair, or nil when none exists.
func (s *Store) FindPlayerTeam(ctx context.Context, playerID, teamID uint) (*models.PlayerTeam, error) {
	var pt models.PlayerTeam
	err := s.conn(ctx).Where("player_id = ? AND team_id = ?", playerID, teamID).First(&pt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "database: find player team")
	}
	return &pt, nil
}

// FindCard returns an existing canonical card with the same series, number
// and color, or nil.
func (s *Store) FindCard(ctx context.Context, seriesID uint, cardNumber string, colorID *uint) (*models.Card, error) {
	q := s.conn(ctx).Where("series_id = ? AND card_number = ?", seriesID, cardNumber)
	if colorID != nil {
		q = q.Where("color_id = ?", *colorID)
	} else {
		q = q.Where("color_id IS NULL")
	}
	var card models.Card
	err := q.Order("id").First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "database: find card")
	}
	return &card, nil
}

// Writes. Each create checks its natural key first and reports a duplicate
// with the existing id; a racing insert that trips the unique index is
// reported the same way.

func (s *Store) CreateSet(ctx context.Context, set *models.Set) error {
	set.Name = strings.TrimSpace(set.Name)
	if set.Name == "" {
		return apperrors.Validation("set name is required")
	}
	if set.Slug == "" {
		set.Slug = SetSlug(set.Name, set.Year)
	}

	var existing models.Set
	err := s.conn(ctx).Where("slug = ?", set.Slug).First(&existing).Error
	if err == nil {
		return apperrors.Duplicate("set", existing.ID, existing.Name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return eris.Wrap(err, "database: check set slug")
	}

	if err := s.conn(ctx).Create(set).Error; err != nil {
		if isUniqueViolation(err) {
			return s.duplicateAfterRace(ctx, &models.Set{}, "slug = ?", set.Slug, "set", set.Name)
		}
		return eris.Wrap(err, "database: create set")
	}
	return nil
}

// CreateSeries creates a series under its set and bumps the set's
// series_count in the same unit.
func (s *Store) CreateSeries(ctx context.Context, series *models.Series) error {
	series.Name = strings.TrimSpace(series.Name)
	if series.Name == "" {
		return apperrors.Validation("series name is required")
	}
	if series.Slug == "" {
		series.Slug = textnorm.Slug(series.Name)
	}

	return s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.GetSet(ctx, series.SetID); err != nil {
			return err
		}

		var existing models.Series
		err := tx.conn(ctx).Where("set_id = ? AND slug = ?", series.SetID, series.Slug).First(&existing).Error
		if err == nil {
			return apperrors.Duplicate("series", existing.ID, existing.Name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return eris.Wrap(err, "database: check series slug")
		}

		if err := tx.conn(ctx).Create(series).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.Duplicate("series", 0, series.Name)
			}
			return eris.Wrap(err, "database: create series")
		}

		err = tx.conn(ctx).Model(&models.Set{}).Where("id = ?", series.SetID).
			UpdateColumn("series_count", gorm.Expr("series_count + ?", 1)).Error
		if err != nil {
			return eris.Wrap(err, "database: increment series count")
		}
		return nil
	})
}

// CreatePlayer rejects a player whose normalized name already exists unless
// allowDuplicate is set; two different people can share a name.
func (s *Store) CreatePlayer(ctx context.Context, player *models.Player, allowDuplicate bool) error {
	player.Name = strings.TrimSpace(player.Name)
	if player.Name == "" {
		return apperrors.Validation("player name is required")
	}
	player.NormalizedName = textnorm.Normalize(player.Name)

	if !allowDuplicate {
		var existing models.Player
		err := s.conn(ctx).Where("normalized_name = ?", player.NormalizedName).Order("id").First(&existing).Error
		if err == nil {
			return apperrors.Duplicate("player", existing.ID, existing.Name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return eris.Wrap(err, "database: check player name")
		}
	}

	if err := s.conn(ctx).Create(player).Error; err != nil {
		return eris.Wrap(err, "database: create player")
	}
	return nil
}

func (s *Store) CreateTeam(ctx context.Context, team *models.Team) error {
	team.Name = strings.TrimSpace(team.Name)
	if team.Name == "" {
		return apperrors.Validation("team name is required")
	}

	var existing models.Team
	err := s.conn(ctx).Where("LOWER(name) = LOWER(?)", team.Name).Order("id").First(&existing).Error
	if err == nil {
		return apperrors.Duplicate("team", existing.ID, existing.Name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return eris.Wrap(err, "database: check team name")
	}

	if err := s.conn(ctx).Create(team).Error; err != nil {
		return eris.Wrap(err, "database: create team")
	}
	return nil
}

// EnsurePlayerTeam returns the association for the pair, creating it when
// missing. created reports whether a row was inserted.
func (s *Store) EnsurePlayerTeam(ctx context.Context, playerID, teamID uint) (pt *models.PlayerTeam, created bool, err error) {
	existing, err := s.FindPlayerTeam(ctx, playerID, teamID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	pt = &models.PlayerTeam{PlayerID: playerID, TeamID: teamID}
	if err := s.conn(ctx).Create(pt).Error; err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.FindPlayerTeam(ctx, playerID, teamID)
			if findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, eris.Wrap(err, "database: create player team")
	}
	return pt, true, nil
}

func (s *Store) CreateColor(ctx context.Context, color *models.Color) error {
	color.Name = strings.TrimSpace(color.Name)
	if color.Name == "" {
		return apperrors.Validation("color name is required")
	}

	var existing models.Color
	err := s.conn(ctx).Where("LOWER(name) = LOWER(?)", color.Name).First(&existing).Error
	if err == nil {
		return apperrors.Duplicate("color", existing.ID, existing.Name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return eris.Wrap(err, "database: check color name")
	}

	if err := s.conn(ctx).Create(color).Error; err != nil {
		if isUniqueViolation(err) {
			return s.duplicateAfterRace(ctx, &models.Color{}, "name = ?", color.Name, "color", color.Name)
		}
		return eris.Wrap(err, "database: create color")
	}
	return nil
}

// CreateCard inserts a canonical card together with its player links. A card
// with the same series, number and color is reported as a duplicate carrying
// the existing id.
func (s *Store) CreateCard(ctx context.Context, card *models.Card) error {
	card.CardKey = models.CardKeyFor(card.SeriesID, card.CardNumber, card.ColorID)
	err := s.WithTx(ctx, func(tx *Store) error {
		return tx.conn(ctx).Create(card).Error
	})
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		var existing models.Card
		if findErr := s.conn(ctx).Select("id").Where("card_key = ?", card.CardKey).Take(&existing).Error; findErr == nil {
			card.ID = 0
			return apperrors.Duplicate("card", existing.ID, "#"+card.CardNumber)
		}
	}
	return eris.Wrap(err, "database: create card")
}

// IncrementSeriesCardsEntered bumps the progress counter for a series.
func (s *Store) IncrementSeriesCardsEntered(ctx context.Context, seriesID uint) error {
	err := s.conn(ctx).Model(&models.Series{}).Where("id = ?", seriesID).
		UpdateColumn("cards_entered", gorm.Expr("cards_entered + ?", 1)).Error
	if err != nil {
		return eris.Wrapf(err, "database: increment cards entered for series %d", seriesID)
	}
	return nil
}

func (s *Store) FirstOrCreateManufacturer(ctx context.Context, name string) (*models.Manufacturer, error) {
	m := models.Manufacturer{Name: strings.TrimSpace(name)}
	if err := s.conn(ctx).Where("name = ?", m.Name).FirstOrCreate(&m).Error; err != nil {
		return nil, eris.Wrapf(err, "database: manufacturer %q", name)
	}
	return &m, nil
}

func (s *Store) FirstOrCreateOrganization(ctx context.Context, name, abbreviation string) (*models.Organization, error) {
	o := models.Organization{Name: strings.TrimSpace(name)}
	err := s.conn(ctx).Where("name = ?", o.Name).
		Attrs(models.Organization{Abbreviation: abbreviation}).FirstOrCreate(&o).Error
	if err != nil {
		return nil, eris.Wrapf(err, "database: organization %q", name)
	}
	return &o, nil
}

func (s *Store) duplicateAfterRace(ctx context.Context, model any, where string, arg any, entity, name string) error {
	type idRow struct{ ID uint }
	var row idRow
	if err := s.conn(ctx).Model(model).Select("id").Where(where, arg).Take(&row).Error; err != nil {
		return apperrors.Duplicate(entity, 0, name)
	}
	return apperrors.Duplicate(entity, row.ID, name)
}
