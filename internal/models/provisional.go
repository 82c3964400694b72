package models

import (
	"time"
)

type BundleStatus string

const (
	BundleStatusPending  BundleStatus = "pending"
	BundleStatusApproved BundleStatus = "approved"
	BundleStatusRejected BundleStatus = "rejected"
)

type ProvisionalStatus string

const (
	ProvisionalPending      ProvisionalStatus = "pending"
	ProvisionalAutoResolved ProvisionalStatus = "auto_resolved"
	ProvisionalApproved     ProvisionalStatus = "approved"
	ProvisionalRejected     ProvisionalStatus = "rejected"
)

// ProvisionalCardBundle is one contributor submission of 1-N cards. It moves
// from pending to approved or rejected exactly once.
type ProvisionalCardBundle struct {
	ID                string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID            uint              `json:"user_id" gorm:"not null;index"`
	User              *User             `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Status            BundleStatus      `json:"status" gorm:"not null;default:'pending';index"`
	SubmittedAt       time.Time         `json:"submitted_at" gorm:"not null;index"`
	ReviewedAt        *time.Time        `json:"reviewed_at"`
	ReviewedBy        *uint             `json:"reviewed_by"`
	ReviewNotes       string            `json:"review_notes"`
	CardCount         int               `json:"card_count"`
	AutoResolvedCount int               `json:"auto_resolved_count"`
	NeedsReviewCount  int               `json:"needs_review_count"`
	RequiresNewSet    bool              `json:"requires_new_set"`
	RequiresNewSeries bool              `json:"requires_new_series"`
	RequiresNewPlayer bool              `json:"requires_new_player"`
	RequiresNewTeam   bool              `json:"requires_new_team"`
	Cards             []ProvisionalCard `json:"cards,omitempty" gorm:"foreignKey:BundleID"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ProvisionalCard keeps the contributor's raw text next to whatever the
// resolver (or an admin) could link it to. Rows are never deleted.
type ProvisionalCard struct {
	ID       uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	BundleID string `json:"bundle_id" gorm:"not null;index;type:varchar(36)"`
	UserID   uint   `json:"user_id" gorm:"not null;index"`
	Position int    `json:"position" gorm:"not null"`

	SetNameRaw    string `json:"set_name_raw"`
	SeriesNameRaw string `json:"series_name_raw"`
	ColorNameRaw  string `json:"color_name_raw"`
	PlayerNameRaw string `json:"player_name_raw"`
	TeamNameRaw   string `json:"team_name_raw"`
	Year          int    `json:"year"`
	CardNumber    string `json:"card_number"`
	PrintRun      *int   `json:"print_run"`
	Notes         string `json:"notes"`
	Rookie        bool   `json:"rookie"`
	Auto          bool   `json:"auto"`
	Relic         bool   `json:"relic"`
	ShortPrint    bool   `json:"short_print"`

	ResolvedSetID    *uint             `json:"resolved_set_id"`
	SetConfidence    *float64          `json:"set_confidence"`
	ResolvedSeriesID *uint             `json:"resolved_series_id"`
	SeriesConfidence *float64          `json:"series_confidence"`
	ResolvedColorID  *uint             `json:"resolved_color_id"`
	ColorConfidence  *float64          `json:"color_confidence"`
	ResolvedCardID   *uint             `json:"resolved_card_id"`
	RequiresNewColor bool              `json:"requires_new_color"`
	Status           ProvisionalStatus `json:"status" gorm:"not null;default:'pending'"`
	NeedsReview      bool              `json:"needs_review"`

	Players   []ProvisionalCardPlayer `json:"players,omitempty" gorm:"foreignKey:ProvisionalCardID"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// ProvisionalCardPlayer is one (player, team) pairing parsed from a card's
// free-text player and team fields.
type ProvisionalCardPlayer struct {
	ID                   uint     `json:"id" gorm:"primaryKey;autoIncrement"`
	ProvisionalCardID    uint     `json:"provisional_card_id" gorm:"not null;uniqueIndex:idx_provisional_player_position"`
	Position             int      `json:"position" gorm:"not null;uniqueIndex:idx_provisional_player_position"`
	PlayerNameRaw        string   `json:"player_name_raw"`
	TeamNameRaw          *string  `json:"team_name_raw"`
	ResolvedPlayerID     *uint    `json:"resolved_player_id"`
	ResolvedTeamID       *uint    `json:"resolved_team_id"`
	ResolvedPlayerTeamID *uint    `json:"resolved_player_team_id"`
	MatchConfidence      *float64 `json:"match_confidence"`
	// AmbiguousPlayer is set when several catalog players share the name and
	// the team could not pick one.
	AmbiguousPlayer bool `json:"ambiguous_player"`
	AutoMatched     bool `json:"auto_matched"`
	NeedsReview     bool `json:"needs_review"`
}

// Accepted reports whether a resolved reference clears the auto-accept threshold.
func Accepted(id *uint, confidence *float64, threshold float64) bool {
	return id != nil && confidence != nil && *confidence >= threshold
}

// IsResolved reports whether the pairing can back a materialized card: the
// player-team association must exist, a team alone is not enough.
func (p ProvisionalCardPlayer) IsResolved(threshold float64) bool {
	return p.ResolvedPlayerID != nil && Accepted(p.ResolvedPlayerTeamID, p.MatchConfidence, threshold)
}

// RequiredFieldsResolved reports whether set, series and every pairing clear
// the threshold. Color never blocks.
func (c ProvisionalCard) RequiredFieldsResolved(threshold float64) bool {
	if !Accepted(c.ResolvedSetID, c.SetConfidence, threshold) {
		return false
	}
	if !Accepted(c.ResolvedSeriesID, c.SeriesConfidence, threshold) {
		return false
	}
	if len(c.Players) == 0 {
		return false
	}
	for _, p := range c.Players {
		if !p.IsResolved(threshold) {
			return false
		}
	}
	return true
}
