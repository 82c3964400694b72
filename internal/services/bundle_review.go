package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/database"
	"github.com/codyseavey/cardcatalog/internal/metrics"
	"github.com/codyseavey/cardcatalog/internal/models"
)

// SystemReviewerID marks decisions taken without an admin.
const SystemReviewerID uint = 0

const fullConfidence = 1.0

// BundleReviewService lets admins adjudicate provisional cards and approve or
// reject whole bundles.
type BundleReviewService struct {
	store    *database.Store
	resolver *AutoResolver
	points   *PointsService
	minNotes int
	maxNotes int
}

func NewBundleReviewService(store *database.Store, resolver *AutoResolver, points *PointsService, cfg config.ReviewConfig) *BundleReviewService {
	minNotes, maxNotes := cfg.MinRejectNotes, cfg.MaxReviewNotes
	if minNotes <= 0 {
		minNotes = 10
	}
	if maxNotes <= 0 {
		maxNotes = 2000
	}
	return &BundleReviewService{
		store:    store,
		resolver: resolver,
		points:   points,
		minNotes: minNotes,
		maxNotes: maxNotes,
	}
}

func (s *BundleReviewService) threshold() float64 {
	return s.resolver.Threshold()
}

// ListPending returns the FIFO review queue.
func (s *BundleReviewService) ListPending(ctx context.Context, limit int) ([]models.PendingBundleSummary, error) {
	pending, err := s.store.ListPendingBundles(ctx, limit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		metrics.PendingBundles.Set(float64(len(pending)))
	}
	return pending, nil
}

// editableCard loads a card and checks it may still be adjudicated: its
// bundle is pending, or the bundle was approved but this card failed to
// materialize.
func (s *BundleReviewService) editableCard(ctx context.Context, tx *database.Store, cardID uint) (*models.ProvisionalCard, error) {
	card, err := tx.GetProvisionalCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	status, err := tx.BundleStatus(ctx, card.BundleID)
	if err != nil {
		return nil, err
	}
	switch {
	case status == models.BundleStatusPending:
		return card, nil
	case status == models.BundleStatusApproved && card.ResolvedCardID == nil && card.Status != models.ProvisionalApproved:
		return card, nil
	default:
		return nil, apperrors.InvalidState("bundle %s is %s", card.BundleID, status)
	}
}

// ResolveSet links or creates the card's set. Changing the set drops a series
// that belongs to another set and retries series matching in the new one.
func (s *BundleReviewService) ResolveSet(ctx context.Context, cardID uint, req models.ResolveSetRequest) (*models.ProvisionalCard, error) {
	if req.SetID == nil && strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.Validation("set_id or name is required")
	}

	err := s.store.WithTx(ctx, func(tx *database.Store) error {
		card, err := s.editableCard(ctx, tx, cardID)
		if err != nil {
			return err
		}

		var setID uint
		if req.SetID != nil {
			set, err := tx.GetSet(ctx, *req.SetID)
			if err != nil {
				return err
			}
			setID = set.ID
		} else {
			year := req.Year
			if year == 0 {
				year = card.Year
			}
			set := models.Set{Name: req.Name, Year: year, ManufacturerID: req.ManufacturerID}
			if err := tx.CreateSet(ctx, &set); err != nil {
				return err
			}
			metrics.EntitiesCreatedTotal.WithLabelValues(string(models.EntitySet)).Inc()
			setID = set.ID
		}

		updates := map[string]any{
			"resolved_set_id": setID,
			"set_confidence":  fullConfidence,
		}

		seriesInSet := false
		if card.ResolvedSeriesID != nil {
			series, err := tx.GetSeries(ctx, *card.ResolvedSeriesID)
			if err == nil && series.SetID == setID {
				seriesInSet = true
			}
		}
		if !seriesInSet {
			series, err := tx.ListSeriesBySet(ctx, setID)
			if err != nil {
				return err
			}
			snap := NewCatalogSnapshot(nil, series, nil, nil, nil, nil)
			field := s.resolver.ResolveSeries(snap, setID, card.SeriesNameRaw)
			updates["resolved_series_id"] = field.ResolvedID()
			updates["series_confidence"] = field.Confidence()
		}

		if err := tx.UpdateProvisionalCard(ctx, cardID, updates); err != nil {
			return err
		}
		return s.recompute(ctx, tx, cardID, card.BundleID)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetProvisionalCard(ctx, cardID)
}

// ResolveSeries links or creates the card's series. The card's set must
// already be accepted.
func (s *BundleReviewService) ResolveSeries(ctx context.Context, cardID uint, req models.ResolveSeriesRequest) (*models.ProvisionalCard, error) {
	if req.SeriesID == nil && strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.Validation("series_id or name is required")
	}

	err := s.store.WithTx(ctx, func(tx *database.Store) error {
		card, err := s.editableCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if !models.Accepted(card.ResolvedSetID, card.SetConfidence, s.threshold()) {
			return apperrors.InvalidState("card %d has no resolved set; resolve the set before the series", cardID)
		}
		setID := *card.ResolvedSetID

		var seriesID uint
		if req.SeriesID != nil {
			series, err := tx.GetSeries(ctx, *req.SeriesID)
			if err != nil {
				return err
			}
			if series.SetID != setID {
				return apperrors.Validation("series %d belongs to set %d, not %d", series.ID, series.SetID, setID)
			}
			seriesID = series.ID
		} else {
			series := models.Series{SetID: setID, Name: req.Name}
			if err := tx.CreateSeries(ctx, &series); err != nil {
				return err
			}
			metrics.EntitiesCreatedTotal.WithLabelValues(string(models.EntitySeries)).Inc()
			seriesID = series.ID
		}

		err = tx.UpdateProvisionalCard(ctx, cardID, map[string]any{
			"resolved_series_id": seriesID,
			"series_confidence":  fullConfidence,
		})
		if err != nil {
			return err
		}
		return s.recompute(ctx, tx, cardID, card.BundleID)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetProvisionalCard(ctx, cardID)
}

// ResolveColor links or creates the card's parallel color.
func (s *BundleReviewService) ResolveColor(ctx context.Context, cardID uint, req models.ResolveColorRequest) (*models.ProvisionalCard, error) {
	if req.ColorID == nil && strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.Validation("color_id or name is required")
	}

	err := s.store.WithTx(ctx, func(tx *database.Store) error {
		card, err := s.editableCard(ctx, tx, cardID)
		if err != nil {
			return err
		}

		var colorID uint
		if req.ColorID != nil {
			color, err := tx.GetColor(ctx, *req.ColorID)
			if err != nil {
				return err
			}
			colorID = color.ID
		} else {
			color := models.Color{Name: req.Name}
			if err := tx.CreateColor(ctx, &color); err != nil {
				return err
			}
			metrics.EntitiesCreatedTotal.WithLabelValues(string(models.EntityColor)).Inc()
			colorID = color.ID
		}

		err = tx.UpdateProvisionalCard(ctx, cardID, map[string]any{
			"resolved_color_id": colorID,
			"color_confidence":  fullConfidence,
		})
		if err != nil {
			return err
		}
		return s.recompute(ctx, tx, cardID, card.BundleID)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetProvisionalCard(ctx, cardID)
}

// ResolvePlayer settles one pairing: it links or creates the player and the
// team, then links or creates their association.
func (s *BundleReviewService) ResolvePlayer(ctx context.Context, pairingID uint, req models.ResolvePlayerRequest) (*models.ProvisionalCard, error) {
	var cardID uint
	err := s.store.WithTx(ctx, func(tx *database.Store) error {
		pairing, err := tx.GetProvisionalPlayer(ctx, pairingID)
		if err != nil {
			return err
		}
		card, err := s.editableCard(ctx, tx, pairing.ProvisionalCardID)
		if err != nil {
			return err
		}
		cardID = card.ID

		playerID, err := s.pickPlayer(ctx, tx, pairing, req)
		if err != nil {
			return err
		}
		teamID, err := s.pickTeam(ctx, tx, pairing, playerID, req)
		if err != nil {
			return err
		}

		pt, created, err := tx.EnsurePlayerTeam(ctx, playerID, teamID)
		if err != nil {
			return err
		}
		if created {
			metrics.EntitiesCreatedTotal.WithLabelValues("player_team").Inc()
		}

		err = tx.UpdateProvisionalPlayer(ctx, pairingID, map[string]any{
			"resolved_player_id":      playerID,
			"resolved_team_id":        teamID,
			"resolved_player_team_id": pt.ID,
			"match_confidence":        fullConfidence,
			"ambiguous_player":        false,
			"auto_matched":            false,
			"needs_review":            false,
		})
		if err != nil {
			return err
		}
		return s.recompute(ctx, tx, card.ID, card.BundleID)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetProvisionalCard(ctx, cardID)
}

func (s *BundleReviewService) pickPlayer(ctx context.Context, tx *database.Store, pairing *models.ProvisionalCardPlayer, req models.ResolvePlayerRequest) (uint, error) {
	switch {
	case req.PlayerID != nil:
		player, err := tx.GetPlayer(ctx, *req.PlayerID)
		if err != nil {
			return 0, err
		}
		return player.ID, nil
	case strings.TrimSpace(req.PlayerName) != "":
		player := models.Player{Name: req.PlayerName}
		if err := tx.CreatePlayer(ctx, &player, req.AllowDuplicatePlayer); err != nil {
			return 0, err
		}
		metrics.EntitiesCreatedTotal.WithLabelValues(string(models.EntityPlayer)).Inc()
		return player.ID, nil
	case pairing.ResolvedPlayerID != nil:
		return *pairing.ResolvedPlayerID, nil
	}
	return 0, apperrors.Validation("player_id or player_name is required")
}

func (s *BundleReviewService) pickTeam(ctx context.Context, tx *database.Store, pairing *models.ProvisionalCardPlayer, playerID uint, req models.ResolvePlayerRequest) (uint, error) {
	switch {
	case req.TeamID != nil:
		team, err := tx.GetTeam(ctx, *req.TeamID)
		if err != nil {
			return 0, err
		}
		return team.ID, nil
	case strings.TrimSpace(req.TeamName) != "":
		team := models.Team{
			Name:           req.TeamName,
			City:           req.TeamCity,
			Nickname:       req.TeamNickname,
			Abbreviation:   req.TeamAbbreviation,
			OrganizationID: req.OrganizationID,
		}
		if err := tx.CreateTeam(ctx, &team); err != nil {
			return 0, err
		}
		metrics.EntitiesCreatedTotal.WithLabelValues(string(models.EntityTeam)).Inc()
		return team.ID, nil
	case pairing.ResolvedTeamID != nil:
		return *pairing.ResolvedTeamID, nil
	case pairing.TeamNameRaw != nil:
		// The contributor named a team that did not resolve; only the admin
		// can replace it.
		return 0, apperrors.Validation("team %q is unresolved: team_id or team_name is required", *pairing.TeamNameRaw)
	}

	pts, err := tx.ListPlayerTeams(ctx)
	if err != nil {
		return 0, err
	}
	var teamIDs []uint
	for _, pt := range pts {
		if pt.PlayerID == playerID {
			teamIDs = append(teamIDs, pt.TeamID)
		}
	}
	if len(teamIDs) == 1 {
		return teamIDs[0], nil
	}
	return 0, apperrors.Validation("team_id or team_name is required")
}

// recompute refreshes a card's review flags and, while the bundle is
// pending, its bundle's summary from the stored resolution state.
func (s *BundleReviewService) recompute(ctx context.Context, tx *database.Store, cardID uint, bundleID string) error {
	card, err := tx.GetProvisionalCard(ctx, cardID)
	if err != nil {
		return err
	}
	thr := s.threshold()

	for _, p := range card.Players {
		needs := !p.IsResolved(thr)
		if needs != p.NeedsReview {
			if err := tx.UpdateProvisionalPlayer(ctx, p.ID, map[string]any{"needs_review": needs}); err != nil {
				return err
			}
		}
	}

	if err := tx.UpdateProvisionalCard(ctx, cardID, cardReviewState(*card, thr).columns()); err != nil {
		return err
	}

	bundle, err := tx.GetBundle(ctx, bundleID)
	if err != nil {
		return err
	}
	// A reviewed bundle keeps the summary it was reviewed with.
	if bundle.Status != models.BundleStatusPending {
		return nil
	}
	return tx.UpdateBundleSummary(ctx, bundleID, summarizeBundle(bundle.Cards, thr).columns())
}

type reviewState struct {
	needsReview      bool
	status           models.ProvisionalStatus
	requiresNewColor bool
}

// cardReviewState derives a card's review flags from its stored resolution.
// Terminal statuses are left alone.
func cardReviewState(card models.ProvisionalCard, thr float64) reviewState {
	st := reviewState{
		needsReview:      !card.RequiredFieldsResolved(thr),
		status:           card.Status,
		requiresNewColor: strings.TrimSpace(card.ColorNameRaw) != "" && !models.Accepted(card.ResolvedColorID, card.ColorConfidence, thr),
	}
	switch st.status {
	case models.ProvisionalPending, models.ProvisionalAutoResolved, "":
		st.status = models.ProvisionalPending
		if !st.needsReview {
			st.status = models.ProvisionalAutoResolved
		}
	}
	return st
}

func (st reviewState) columns() map[string]any {
	return map[string]any{
		"needs_review":       st.needsReview,
		"status":             st.status,
		"requires_new_color": st.requiresNewColor,
	}
}

type bundleSummary struct {
	cardCount         int
	autoResolved      int
	needsReview       int
	requiresNewSet    bool
	requiresNewSeries bool
	requiresNewPlayer bool
	requiresNewTeam   bool
}

// summarizeBundle computes the bundle counters from stored card state.
func summarizeBundle(cards []models.ProvisionalCard, thr float64) bundleSummary {
	sum := bundleSummary{cardCount: len(cards)}
	for _, c := range cards {
		if c.RequiredFieldsResolved(thr) {
			sum.autoResolved++
		} else {
			sum.needsReview++
		}

		setOK := models.Accepted(c.ResolvedSetID, c.SetConfidence, thr)
		if !setOK {
			sum.requiresNewSet = true
			if c.SetConfidence == nil {
				sum.requiresNewSeries = true
			}
		} else if !models.Accepted(c.ResolvedSeriesID, c.SeriesConfidence, thr) {
			sum.requiresNewSeries = true
		}

		for _, p := range c.Players {
			if p.ResolvedPlayerID == nil && !p.AmbiguousPlayer {
				sum.requiresNewPlayer = true
			}
			if p.TeamNameRaw != nil && p.ResolvedTeamID == nil {
				sum.requiresNewTeam = true
			}
		}
	}
	return sum
}

func (b bundleSummary) columns() map[string]any {
	return map[string]any{
		"card_count":          b.cardCount,
		"auto_resolved_count": b.autoResolved,
		"needs_review_count":  b.needsReview,
		"requires_new_set":    b.requiresNewSet,
		"requires_new_series": b.requiresNewSeries,
		"requires_new_player": b.requiresNewPlayer,
		"requires_new_team":   b.requiresNewTeam,
	}
}

func (b bundleSummary) apply(bundle *models.ProvisionalCardBundle) {
	bundle.CardCount = b.cardCount
	bundle.AutoResolvedCount = b.autoResolved
	bundle.NeedsReviewCount = b.needsReview
	bundle.RequiresNewSet = b.requiresNewSet
	bundle.RequiresNewSeries = b.requiresNewSeries
	bundle.RequiresNewPlayer = b.requiresNewPlayer
	bundle.RequiresNewTeam = b.requiresNewTeam
}

func (s *BundleReviewService) checkNotes(notes string, required bool) (string, error) {
	notes = strings.TrimSpace(notes)
	n := utf8.RuneCountInString(notes)
	if required && n < s.minNotes {
		return "", apperrors.Validation("review notes must be at least %d characters", s.minNotes)
	}
	if n > s.maxNotes {
		return "", apperrors.Validation("review notes must be at most %d characters", s.maxNotes)
	}
	return notes, nil
}

// Approve claims a pending bundle and materializes each fully resolved card.
// Cards that cannot be materialized are reported in Errors and roll back on
// their own; the bundle is approved regardless.
func (s *BundleReviewService) Approve(ctx context.Context, bundleID string, reviewerID uint, notes string) (*models.ApprovalResult, error) {
	notes, err := s.checkNotes(notes, false)
	if err != nil {
		return nil, err
	}

	result := &models.ApprovalResult{BundleID: bundleID, Status: models.BundleStatusApproved, Errors: []models.CardApprovalError{}}
	var submitter uint

	err = s.store.WithTx(ctx, func(tx *database.Store) error {
		if err := tx.ClaimBundle(ctx, bundleID, models.BundleStatusApproved, reviewerID, notes); err != nil {
			return err
		}
		bundle, err := tx.GetBundle(ctx, bundleID)
		if err != nil {
			return err
		}
		submitter = bundle.UserID

		for _, card := range bundle.Cards {
			var linked bool
			err := tx.WithTx(ctx, func(cardTx *database.Store) error {
				var err error
				linked, err = s.materialize(ctx, cardTx, card)
				return err
			})
			if err != nil {
				if apperrors.KindOf(err) == "" {
					zap.L().Error("card materialization failed",
						zap.String("bundle_id", bundleID), zap.Uint("provisional_card_id", card.ID), zap.Error(err))
				}
				result.Errors = append(result.Errors, models.CardApprovalError{ProvisionalCardID: card.ID, Reason: err.Error()})
				continue
			}
			if linked {
				result.CardsLinked++
			} else {
				result.CardsCreated++
			}
		}

		_, err = s.points.AwardApproval(ctx, tx, bundle.UserID, result.CardsCreated+result.CardsLinked)
		return err
	})
	if err != nil {
		return nil, err
	}

	reviewer := "admin"
	if reviewerID == SystemReviewerID {
		reviewer = "auto"
	}
	metrics.PendingBundles.Dec()
	metrics.BundleReviewsTotal.WithLabelValues("approved", reviewer).Inc()
	metrics.CardsMaterializedTotal.WithLabelValues("created").Add(float64(result.CardsCreated))
	metrics.CardsMaterializedTotal.WithLabelValues("linked").Add(float64(result.CardsLinked))
	metrics.CardsMaterializedTotal.WithLabelValues("failed").Add(float64(len(result.Errors)))

	zap.L().Info("bundle approved",
		zap.String("bundle_id", bundleID),
		zap.Uint("submitter", submitter),
		zap.String("reviewer", reviewer),
		zap.Int("cards_created", result.CardsCreated),
		zap.Int("cards_linked", result.CardsLinked),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// ApproveCard retries materialization for one card of an approved bundle
// that failed the first time.
func (s *BundleReviewService) ApproveCard(ctx context.Context, cardID uint) (*models.ApprovalResult, error) {
	var result *models.ApprovalResult
	err := s.store.WithTx(ctx, func(tx *database.Store) error {
		card, err := tx.GetProvisionalCard(ctx, cardID)
		if err != nil {
			return err
		}
		status, err := tx.BundleStatus(ctx, card.BundleID)
		if err != nil {
			return err
		}
		if status != models.BundleStatusApproved || card.Status == models.ProvisionalApproved {
			return apperrors.InvalidState("card %d is not awaiting materialization", cardID)
		}

		linked, err := s.materialize(ctx, tx, *card)
		if err != nil {
			return err
		}
		result = &models.ApprovalResult{BundleID: card.BundleID, Status: status, Errors: []models.CardApprovalError{}}
		if linked {
			result.CardsLinked = 1
		} else {
			result.CardsCreated = 1
		}
		_, err = s.points.AwardApproval(ctx, tx, card.UserID, 1)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// materialize turns one provisional card into a canonical card, or links it
// to an identical existing one. It reports whether it linked.
func (s *BundleReviewService) materialize(ctx context.Context, tx *database.Store, card models.ProvisionalCard) (bool, error) {
	thr := s.threshold()
	if missing := unresolvedFields(card, thr); len(missing) > 0 {
		return false, apperrors.InvalidState("card %d is not fully resolved: %s", card.ID, strings.Join(missing, ", "))
	}

	series, err := tx.GetSeries(ctx, *card.ResolvedSeriesID)
	if err != nil {
		return false, err
	}
	if series.SetID != *card.ResolvedSetID {
		return false, apperrors.InvalidState("series %d does not belong to set %d", series.ID, *card.ResolvedSetID)
	}

	var colorID *uint
	if models.Accepted(card.ResolvedColorID, card.ColorConfidence, thr) {
		colorID = card.ResolvedColorID
	}

	existing, err := tx.FindCard(ctx, series.ID, card.CardNumber, colorID)
	if err != nil {
		return false, err
	}

	linked := existing != nil
	var canonicalID uint
	if linked {
		canonicalID = existing.ID
	} else {
		canonical := models.Card{
			SetID:      *card.ResolvedSetID,
			SeriesID:   series.ID,
			CardNumber: card.CardNumber,
			ColorID:    colorID,
			Year:       card.Year,
			PrintRun:   card.PrintRun,
			Rookie:     card.Rookie,
			Auto:       card.Auto,
			Relic:      card.Relic,
			ShortPrint: card.ShortPrint,
		}
		for _, p := range card.Players {
			canonical.Players = append(canonical.Players, models.CardPlayer{
				Position:     p.Position,
				PlayerTeamID: *p.ResolvedPlayerTeamID,
			})
		}
		err := tx.CreateCard(ctx, &canonical)
		var dup *apperrors.Error
		switch {
		case errors.As(err, &dup) && dup.Kind == apperrors.KindDuplicate && dup.ExistingID != nil:
			// Another approval materialized the same card first.
			linked = true
			canonicalID = *dup.ExistingID
		case err != nil:
			return false, err
		default:
			if err := tx.IncrementSeriesCardsEntered(ctx, series.ID); err != nil {
				return false, err
			}
			canonicalID = canonical.ID
		}
	}

	err = tx.UpdateProvisionalCard(ctx, card.ID, map[string]any{
		"resolved_card_id": canonicalID,
		"status":           models.ProvisionalApproved,
		"needs_review":     false,
	})
	if err != nil {
		return false, err
	}
	if _, err := tx.RelinkCollectionItems(ctx, card.ID, canonicalID); err != nil {
		return false, err
	}
	return linked, nil
}

func unresolvedFields(card models.ProvisionalCard, thr float64) []string {
	var missing []string
	if !models.Accepted(card.ResolvedSetID, card.SetConfidence, thr) {
		missing = append(missing, fmt.Sprintf("set %q unresolved", card.SetNameRaw))
	}
	if !models.Accepted(card.ResolvedSeriesID, card.SeriesConfidence, thr) {
		missing = append(missing, fmt.Sprintf("series %q unresolved", card.SeriesNameRaw))
	}
	if len(card.Players) == 0 {
		missing = append(missing, "no players")
	}
	for _, p := range card.Players {
		if !p.IsResolved(thr) {
			missing = append(missing, fmt.Sprintf("player %d %q unresolved", p.Position, p.PlayerNameRaw))
		}
	}
	return missing
}

// Reject closes a pending bundle, marks its cards rejected and removes the
// contributor's provisional collection entries. Notes are required.
func (s *BundleReviewService) Reject(ctx context.Context, bundleID string, reviewerID uint, notes string) (*models.RejectionResult, error) {
	notes, err := s.checkNotes(notes, true)
	if err != nil {
		return nil, err
	}

	result := &models.RejectionResult{BundleID: bundleID, Status: models.BundleStatusRejected}
	err = s.store.WithTx(ctx, func(tx *database.Store) error {
		if err := tx.ClaimBundle(ctx, bundleID, models.BundleStatusRejected, reviewerID, notes); err != nil {
			return err
		}
		bundle, err := tx.GetBundle(ctx, bundleID)
		if err != nil {
			return err
		}

		if result.CardsRejected, err = tx.SetCardStatus(ctx, bundleID, models.ProvisionalRejected); err != nil {
			return err
		}
		if result.ItemsRemoved, err = tx.DeleteProvisionalCollectionItems(ctx, bundleID); err != nil {
			return err
		}
		result.PointsDeducted, err = s.points.DeductRejection(ctx, tx, bundle.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.PendingBundles.Dec()
	metrics.BundleReviewsTotal.WithLabelValues("rejected", "admin").Inc()
	zap.L().Info("bundle rejected",
		zap.String("bundle_id", bundleID),
		zap.Uint("reviewer", reviewerID),
		zap.Int("cards_rejected", result.CardsRejected),
		zap.Int("items_removed", result.ItemsRemoved),
	)
	return result, nil
}

// Diff builds the admin view of a bundle: raw input beside each resolution,
// with ranked suggestions for anything not yet accepted.
func (s *BundleReviewService) Diff(ctx context.Context, bundleID string) (*models.BundleDiff, error) {
	bundle, err := s.store.GetBundle(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	snap, err := LoadCatalogSnapshot(ctx, s.store)
	if err != nil {
		return nil, err
	}
	thr := s.threshold()

	diff := &models.BundleDiff{TrustLevel: models.TrustNovice}
	if bundle.User != nil {
		diff.Username = bundle.User.Username
		diff.TrustLevel = models.TrustLevelForPoints(bundle.User.Points)
	}

	for _, card := range bundle.Cards {
		cd := models.CardDiff{Card: card}
		cd.Card.Players = nil

		setField := models.FieldDiff{Field: "set", Raw: card.SetNameRaw, ResolvedID: card.ResolvedSetID, Confidence: card.SetConfidence}
		setField.Accepted = models.Accepted(card.ResolvedSetID, card.SetConfidence, thr)
		if card.ResolvedSetID != nil {
			if set, ok := snap.Set(*card.ResolvedSetID); ok {
				setField.ResolvedName = set.Name
			}
		}
		if !setField.Accepted {
			setField.Suggestions = s.resolver.ResolveSet(snap, card.SetNameRaw, card.Year).Candidates
		}
		cd.Fields = append(cd.Fields, setField)

		seriesField := models.FieldDiff{Field: "series", Raw: card.SeriesNameRaw, ResolvedID: card.ResolvedSeriesID, Confidence: card.SeriesConfidence}
		seriesField.Accepted = models.Accepted(card.ResolvedSeriesID, card.SeriesConfidence, thr)
		if card.ResolvedSeriesID != nil {
			if series, ok := snap.Series(*card.ResolvedSeriesID); ok {
				seriesField.ResolvedName = series.Name
			}
		}
		if !seriesField.Accepted && setField.Accepted {
			seriesField.Suggestions = s.resolver.ResolveSeries(snap, *card.ResolvedSetID, card.SeriesNameRaw).Candidates
		}
		cd.Fields = append(cd.Fields, seriesField)

		if strings.TrimSpace(card.ColorNameRaw) != "" {
			colorField := models.FieldDiff{Field: "color", Raw: card.ColorNameRaw, ResolvedID: card.ResolvedColorID, Confidence: card.ColorConfidence}
			colorField.Accepted = models.Accepted(card.ResolvedColorID, card.ColorConfidence, thr)
			if card.ResolvedColorID != nil {
				if color, ok := snap.Color(*card.ResolvedColorID); ok {
					colorField.ResolvedName = color.Name
				}
			}
			if !colorField.Accepted {
				colorField.Suggestions = s.resolver.resolveField(card.ColorNameRaw, snap.Pool(models.EntityColor), models.EntityColor).Candidates
			}
			cd.Fields = append(cd.Fields, colorField)
		}

		for _, p := range card.Players {
			pd := models.PlayerDiff{Pairing: p, Resolved: p.IsResolved(thr)}
			if p.ResolvedPlayerID != nil {
				if player, ok := snap.Player(*p.ResolvedPlayerID); ok {
					pd.ResolvedPlayerName = player.Name
				}
			}
			if p.ResolvedTeamID != nil {
				if team, ok := snap.Team(*p.ResolvedTeamID); ok {
					pd.ResolvedTeamName = team.Name
				}
			}
			if !pd.Resolved {
				suggested := s.resolver.ResolvePairing(snap, PlayerTeamPair{Position: p.Position, PlayerName: p.PlayerNameRaw, TeamName: p.TeamNameRaw})
				pd.PlayerSuggestions = suggested.Player.Candidates
				pd.TeamSuggestions = suggested.Team.Candidates
			}
			cd.Players = append(cd.Players, pd)
		}
		diff.Cards = append(diff.Cards, cd)
	}

	bundle.Cards = nil
	diff.Bundle = *bundle
	return diff, nil
}
