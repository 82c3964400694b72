package models

import (
	"time"
)

// Manufacturer is a card maker (Topps, Panini, Upper Deck).
type Manufacturer struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// Organization is a league or governing body that teams belong to.
type Organization struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string    `json:"name" gorm:"not null;uniqueIndex"`
	Abbreviation string    `json:"abbreviation"`
	CreatedAt    time.Time `json:"created_at"`
}

// Set is a canonical product release, e.g. "2024 Topps".
type Set struct {
	ID             uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name           string        `json:"name" gorm:"not null;index"`
	Slug           string        `json:"slug" gorm:"not null;uniqueIndex"`
	Year           int           `json:"year" gorm:"index"`
	ManufacturerID *uint         `json:"manufacturer_id"`
	Manufacturer   *Manufacturer `json:"manufacturer,omitempty" gorm:"foreignKey:ManufacturerID"`
	SeriesCount    int           `json:"series_count" gorm:"not null;default:0"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Series is a subset or insert line within a Set ("Base", "Chrome Refractors").
type Series struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SetID        uint      `json:"set_id" gorm:"not null;uniqueIndex:idx_series_set_slug"`
	Set          *Set      `json:"set,omitempty" gorm:"foreignKey:SetID"`
	Name         string    `json:"name" gorm:"not null"`
	Slug         string    `json:"slug" gorm:"not null;uniqueIndex:idx_series_set_slug"`
	CardsEntered int       `json:"cards_entered" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the table name stable; "series" is its own plural.
func (Series) TableName() string {
	return "series"
}

type Player struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name           string    `json:"name" gorm:"not null;index"`
	NormalizedName string    `json:"-" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
}

type Team struct {
	ID             uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name           string        `json:"name" gorm:"not null;index"`
	City           string        `json:"city"`
	Nickname       string        `json:"nickname"`
	Abbreviation   string        `json:"abbreviation"`
	OrganizationID *uint         `json:"organization_id"`
	Organization   *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Aliases returns the alternate names a contributor is likely to type for this team.
func (t Team) Aliases() []string {
	var aliases []string
	if t.Nickname != "" {
		aliases = append(aliases, t.Nickname)
		if t.City != "" {
			aliases = append(aliases, t.City+" "+t.Nickname)
		}
	}
	if t.Abbreviation != "" {
		aliases = append(aliases, t.Abbreviation)
	}
	return aliases
}

// PlayerTeam associates a player with a team they appeared on. Cards reference
// this association rather than the player or team alone.
type PlayerTeam struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	PlayerID  uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_player_team"`
	Player    *Player   `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
	TeamID    uint      `json:"team_id" gorm:"not null;uniqueIndex:idx_player_team"`
	Team      *Team     `json:"team,omitempty" gorm:"foreignKey:TeamID"`
	CreatedAt time.Time `json:"created_at"`
}

// Color is a parallel / refractor color ("Gold", "Blue Wave").
type Color struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityKind names a class of canonical entity the matcher can resolve against.
type EntityKind string

const (
	EntitySet    EntityKind = "set"
	EntitySeries EntityKind = "series"
	EntityPlayer EntityKind = "player"
	EntityTeam   EntityKind = "team"
	EntityColor  EntityKind = "color"
)
