package models

import (
	"fmt"
	"time"
)

// Card is a materialized canonical card. It is only ever created by bundle
// approval (or seeding), never directly from contributor input.
type Card struct {
	ID         uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	SetID      uint         `json:"set_id" gorm:"not null;index"`
	SeriesID   uint         `json:"series_id" gorm:"not null;index:idx_card_series_number"`
	Series     *Series      `json:"series,omitempty" gorm:"foreignKey:SeriesID"`
	CardNumber string       `json:"card_number" gorm:"not null;index:idx_card_series_number"`
	ColorID    *uint        `json:"color_id"`
	Color      *Color       `json:"color,omitempty" gorm:"foreignKey:ColorID"`
	CardKey    string       `json:"-" gorm:"size:255;uniqueIndex:idx_card_key"`
	Year       int          `json:"year"`
	PrintRun   *int         `json:"print_run"`
	Rookie     bool         `json:"rookie"`
	Auto       bool         `json:"auto"`
	Relic      bool         `json:"relic"`
	ShortPrint bool         `json:"short_print"`
	Players    []CardPlayer `json:"players,omitempty" gorm:"foreignKey:CardID"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// CardKeyFor builds the natural key stored in Card.CardKey. A card without a
// color uses 0, since a NULL color would never collide in a unique index.
func CardKeyFor(seriesID uint, cardNumber string, colorID *uint) string {
	var color uint
	if colorID != nil {
		color = *colorID
	}
	return fmt.Sprintf("%d|%s|%d", seriesID, cardNumber, color)
}

// CardPlayer links a card to a player-team association at a display position.
type CardPlayer struct {
	ID           uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID       uint        `json:"card_id" gorm:"not null;uniqueIndex:idx_card_player_position"`
	Position     int         `json:"position" gorm:"not null;uniqueIndex:idx_card_player_position"`
	PlayerTeamID uint        `json:"player_team_id" gorm:"not null;index"`
	PlayerTeam   *PlayerTeam `json:"player_team,omitempty" gorm:"foreignKey:PlayerTeamID"`
}

// EntityMatch is one ranked candidate returned by the matcher.
type EntityMatch struct {
	CandidateID uint    `json:"candidate_id"`
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
}

type CatalogSearchResult struct {
	Kind       EntityKind    `json:"kind"`
	Query      string        `json:"query"`
	Matches    []EntityMatch `json:"matches"`
	TotalCount int           `json:"total_count"`
}
