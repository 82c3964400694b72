package models

import (
	"time"
)

// SubmitCardRequest is one contributor-described card. Catalog fields are
// matched against canonical data; collection fields describe the contributor's
// own copy.
type SubmitCardRequest struct {
	PlayerName string `json:"player_name" binding:"required"`
	TeamName   string `json:"team_name"`
	SetName    string `json:"set_name" binding:"required"`
	SeriesName string `json:"series_name"`
	ColorName  string `json:"color_name"`
	CardNumber string `json:"card_number" binding:"required"`
	Year       int    `json:"year" binding:"required,min=1900,max=2100"`
	PrintRun   *int   `json:"print_run" binding:"omitempty,min=1"`
	Rookie     bool   `json:"rookie"`
	Auto       bool   `json:"auto"`
	Relic      bool   `json:"relic"`
	ShortPrint bool   `json:"short_print"`
	Notes      string `json:"notes" binding:"max=2000"`

	SerialNumber    string    `json:"serial_number"`
	PurchasePrice   *float64  `json:"purchase_price" binding:"omitempty,min=0"`
	StorageLocation string    `json:"storage_location"`
	Condition       Condition `json:"condition"`
}

type SubmitBundleRequest struct {
	Cards []SubmitCardRequest `json:"cards" binding:"required,min=1,max=100,dive"`
}

// ResolvedRef describes how one raw fragment was matched.
type ResolvedRef struct {
	ID         *uint   `json:"id"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence"`
	Accepted   bool    `json:"accepted"`
}

type PairingSummary struct {
	Position     int         `json:"position"`
	PlayerName   string      `json:"player_name"`
	TeamName     *string     `json:"team_name"`
	Player       ResolvedRef `json:"player"`
	Team         ResolvedRef `json:"team"`
	PlayerTeamID *uint       `json:"player_team_id"`
	Confidence   float64     `json:"confidence"`
	Resolved     bool        `json:"resolved"`
}

type CardResolutionSummary struct {
	ProvisionalCardID uint              `json:"provisional_card_id,omitempty"`
	Status            ProvisionalStatus `json:"status,omitempty"`
	Set               ResolvedRef       `json:"set"`
	Series            ResolvedRef       `json:"series"`
	Color             *ResolvedRef      `json:"color,omitempty"`
	Players           []PairingSummary  `json:"players"`
	FullyResolved     bool              `json:"fully_resolved"`
	NeedsReview       bool              `json:"needs_review"`
	RequiresNewSet    bool              `json:"requires_new_set"`
	RequiresNewSeries bool              `json:"requires_new_series"`
	RequiresNewColor  bool              `json:"requires_new_color"`
	RequiresNewPlayer bool              `json:"requires_new_player"`
	RequiresNewTeam   bool              `json:"requires_new_team"`
}

type SubmitBundleResponse struct {
	BundleID          string                  `json:"bundle_id"`
	Status            BundleStatus            `json:"status"`
	CardCount         int                     `json:"card_count"`
	AutoResolved      int                     `json:"auto_resolved"`
	NeedsReview       int                     `json:"needs_review"`
	RequiresNewSet    bool                    `json:"requires_new_set"`
	RequiresNewSeries bool                    `json:"requires_new_series"`
	RequiresNewPlayer bool                    `json:"requires_new_player"`
	RequiresNewTeam   bool                    `json:"requires_new_team"`
	Cards             []CardResolutionSummary `json:"cards"`
	Approval          *ApprovalResult         `json:"approval,omitempty"`
	Message           string                  `json:"message"`
}

type ResolveSetRequest struct {
	SetID          *uint  `json:"set_id"`
	Name           string `json:"name"`
	Year           int    `json:"year"`
	ManufacturerID *uint  `json:"manufacturer_id"`
}

type ResolveSeriesRequest struct {
	SeriesID *uint  `json:"series_id"`
	Name     string `json:"name"`
}

type ResolveColorRequest struct {
	ColorID *uint  `json:"color_id"`
	Name    string `json:"name"`
}

// ResolvePlayerRequest links or creates the player, the team and their
// association for one pairing. Any part left empty falls back to what the
// pairing already has resolved.
type ResolvePlayerRequest struct {
	PlayerID             *uint  `json:"player_id"`
	PlayerName           string `json:"player_name"`
	AllowDuplicatePlayer bool   `json:"allow_duplicate_player"`
	TeamID               *uint  `json:"team_id"`
	TeamName             string `json:"team_name"`
	TeamCity             string `json:"team_city"`
	TeamNickname         string `json:"team_nickname"`
	TeamAbbreviation     string `json:"team_abbreviation"`
	OrganizationID       *uint  `json:"organization_id"`
}

type ReviewRequest struct {
	Notes string `json:"notes"`
}

type CardApprovalError struct {
	ProvisionalCardID uint   `json:"provisional_card_id"`
	Reason            string `json:"reason"`
}

type ApprovalResult struct {
	BundleID     string              `json:"bundle_id"`
	Status       BundleStatus        `json:"status"`
	CardsCreated int                 `json:"cards_created"`
	CardsLinked  int                 `json:"cards_linked"`
	Errors       []CardApprovalError `json:"errors"`
}

type RejectionResult struct {
	BundleID       string       `json:"bundle_id"`
	Status         BundleStatus `json:"status"`
	CardsRejected  int          `json:"cards_rejected"`
	ItemsRemoved   int          `json:"collection_items_removed"`
	PointsDeducted int          `json:"points_deducted"`
}

// PendingBundleSummary is one row of the admin review queue.
type PendingBundleSummary struct {
	ID                string     `json:"id"`
	UserID            uint       `json:"user_id"`
	Username          string     `json:"username"`
	SubmitterPoints   int        `json:"submitter_points"`
	TrustLevel        TrustLevel `json:"trust_level"`
	SubmittedAt       time.Time  `json:"submitted_at"`
	CardCount         int        `json:"card_count"`
	AutoResolvedCount int        `json:"auto_resolved_count"`
	NeedsReviewCount  int        `json:"needs_review_count"`
	RequiresNewSet    bool       `json:"requires_new_set"`
	RequiresNewSeries bool       `json:"requires_new_series"`
	RequiresNewPlayer bool       `json:"requires_new_player"`
	RequiresNewTeam   bool       `json:"requires_new_team"`
}

// FieldDiff shows one raw field next to its resolution.
type FieldDiff struct {
	Field        string   `json:"field"`
	Raw          string   `json:"raw"`
	ResolvedID   *uint    `json:"resolved_id"`
	ResolvedName string   `json:"resolved_name,omitempty"`
	Confidence   *float64 `json:"confidence"`
	Accepted     bool     `json:"accepted"`
	// Suggestions are the ranked candidates for a field that is not yet accepted.
	Suggestions []EntityMatch `json:"suggestions,omitempty"`
}

type PlayerDiff struct {
	Pairing            ProvisionalCardPlayer `json:"pairing"`
	ResolvedPlayerName string                `json:"resolved_player_name,omitempty"`
	ResolvedTeamName   string                `json:"resolved_team_name,omitempty"`
	Resolved           bool                  `json:"resolved"`
	PlayerSuggestions  []EntityMatch         `json:"player_suggestions,omitempty"`
	TeamSuggestions    []EntityMatch         `json:"team_suggestions,omitempty"`
}

type CardDiff struct {
	Card    ProvisionalCard `json:"card"`
	Fields  []FieldDiff     `json:"fields"`
	Players []PlayerDiff    `json:"players"`
}

type BundleDiff struct {
	Bundle     ProvisionalCardBundle `json:"bundle"`
	Username   string                `json:"username"`
	TrustLevel TrustLevel            `json:"trust_level"`
	Cards      []CardDiff            `json:"cards"`
}
