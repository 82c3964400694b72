package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/database"
	"github.com/codyseavey/cardcatalog/internal/metrics"
	"github.com/codyseavey/cardcatalog/internal/models"
)

const (
	maxBundleCards = 100
	minYear        = 1900
	maxYear        = 2100
	maxNotesLength = 2000
)

const autoApproveNote = "auto-approved: every card resolved"

// SubmissionService accepts contributor bundles, resolves them against the
// catalog and stores the provisional result.
type SubmissionService struct {
	store       *database.Store
	resolver    *AutoResolver
	review      *BundleReviewService
	points      *PointsService
	concurrency int
}

func NewSubmissionService(store *database.Store, resolver *AutoResolver, review *BundleReviewService, points *PointsService, cfg config.ResolutionConfig) *SubmissionService {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SubmissionService{
		store:       store,
		resolver:    resolver,
		review:      review,
		points:      points,
		concurrency: concurrency,
	}
}

// Submit validates, resolves and persists a bundle. Nothing is written when
// validation fails.
func (s *SubmissionService) Submit(ctx context.Context, caller models.User, req *models.SubmitBundleRequest) (*models.SubmitBundleResponse, error) {
	var typed []models.SubmitCardRequest
	if req != nil {
		typed = slices.Clone(req.Cards)
	}
	if err := ValidateBundle(req); err != nil {
		return nil, err
	}
	if err := rejectRepeatedCards(req.Cards); err != nil {
		return nil, err
	}
	AuditSubmission(caller.ID, req)

	for i, card := range req.Cards {
		id, found, err := s.store.FindPendingDuplicate(ctx, caller.ID, card.SetName, card.Year, card.CardNumber, card.PlayerName)
		if err != nil {
			return nil, err
		}
		if found {
			return nil, apperrors.Duplicate(fmt.Sprintf("card %d: pending submission", i+1), id,
				fmt.Sprintf("%s #%s %s", card.SetName, card.CardNumber, card.PlayerName))
		}
	}

	user, err := s.store.EnsureUser(ctx, caller.ID, caller.Username, caller.Role)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	snap, err := LoadCatalogSnapshot(ctx, s.store)
	if err != nil {
		return nil, err
	}
	resolutions, err := s.resolveAll(ctx, snap, req.Cards)
	if err != nil {
		return nil, err
	}
	metrics.ResolutionDuration.Observe(time.Since(started).Seconds())

	thr := s.resolver.Threshold()
	bundle := &models.ProvisionalCardBundle{UserID: user.ID, Status: models.BundleStatusPending}
	items := make([]*models.CollectionItem, len(req.Cards))
	for i, card := range req.Cards {
		bundle.Cards = append(bundle.Cards, buildProvisionalCard(typed[i], card, resolutions[i], i+1, thr))
		items[i] = buildCollectionItem(card)
	}
	summarizeBundle(bundle.Cards, thr).apply(bundle)

	if err := s.store.CreateBundle(ctx, bundle, items); err != nil {
		return nil, err
	}

	metrics.BundlesSubmittedTotal.Inc()
	metrics.PendingBundles.Inc()
	metrics.CardsSubmittedTotal.WithLabelValues("auto_resolved").Add(float64(bundle.AutoResolvedCount))
	metrics.CardsSubmittedTotal.WithLabelValues("needs_review").Add(float64(bundle.NeedsReviewCount))

	resp := &models.SubmitBundleResponse{
		BundleID:          bundle.ID,
		Status:            bundle.Status,
		CardCount:         bundle.CardCount,
		AutoResolved:      bundle.AutoResolvedCount,
		NeedsReview:       bundle.NeedsReviewCount,
		RequiresNewSet:    bundle.RequiresNewSet,
		RequiresNewSeries: bundle.RequiresNewSeries,
		RequiresNewPlayer: bundle.RequiresNewPlayer,
		RequiresNewTeam:   bundle.RequiresNewTeam,
	}
	for i, res := range resolutions {
		summary := summarizeCard(res)
		summary.ProvisionalCardID = bundle.Cards[i].ID
		summary.Status = bundle.Cards[i].Status
		resp.Cards = append(resp.Cards, summary)
	}

	if bundle.NeedsReviewCount == 0 && s.points.CanAutoApprove(user) {
		approval, err := s.review.Approve(ctx, bundle.ID, SystemReviewerID, autoApproveNote)
		if err != nil {
			// The bundle is stored; it simply waits for an admin.
			zap.L().Warn("auto-approve failed", zap.String("bundle_id", bundle.ID), zap.Error(err))
		} else {
			resp.Approval = approval
			resp.Status = models.BundleStatusApproved
			failed := make(map[uint]bool, len(approval.Errors))
			for _, e := range approval.Errors {
				failed[e.ProvisionalCardID] = true
			}
			for i := range resp.Cards {
				if !failed[resp.Cards[i].ProvisionalCardID] {
					resp.Cards[i].Status = models.ProvisionalApproved
				}
			}
		}
	}

	resp.Message = submissionMessage(resp)

	zap.L().Info("bundle submitted",
		zap.String("bundle_id", bundle.ID),
		zap.Uint("user_id", user.ID),
		zap.Int("cards", bundle.CardCount),
		zap.Int("auto_resolved", bundle.AutoResolvedCount),
		zap.Int("needs_review", bundle.NeedsReviewCount),
		zap.Bool("auto_approved", resp.Approval != nil),
	)
	return resp, nil
}

// Preview resolves a single card without storing anything.
func (s *SubmissionService) Preview(ctx context.Context, card models.SubmitCardRequest) (*models.CardResolutionSummary, error) {
	if err := validateCard(0, &card); err != nil {
		return nil, err
	}
	snap, err := LoadCatalogSnapshot(ctx, s.store)
	if err != nil {
		return nil, err
	}
	summary := summarizeCard(s.resolver.Resolve(snap, resolveInput(card)))
	return &summary, nil
}

func (s *SubmissionService) ListBundles(ctx context.Context, userID uint) ([]models.ProvisionalCardBundle, error) {
	return s.store.ListUserBundles(ctx, userID)
}

func (s *SubmissionService) ListProvisionalCards(ctx context.Context, userID uint, status models.ProvisionalStatus) ([]models.ProvisionalCard, error) {
	return s.store.ListUserProvisionalCards(ctx, userID, status)
}

func (s *SubmissionService) Collection(ctx context.Context, userID uint) (*models.CollectionResponse, error) {
	return s.store.ListUserCollection(ctx, userID)
}

// resolveAll resolves cards concurrently; results keep input order.
func (s *SubmissionService) resolveAll(ctx context.Context, snap *CatalogSnapshot, cards []models.SubmitCardRequest) ([]Resolution, error) {
	out := make([]Resolution, len(cards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range cards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.resolver.Resolve(snap, resolveInput(cards[i]))
			observeResolution(out[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func observeResolution(res Resolution) {
	observe := func(kind models.EntityKind, f FieldResolution) {
		if f.Best == nil {
			metrics.UnmatchedFieldsTotal.WithLabelValues(string(kind)).Inc()
			return
		}
		metrics.MatchConfidence.WithLabelValues(string(kind)).Observe(f.Best.Confidence)
	}
	observe(models.EntitySet, res.Set)
	if res.Set.Accepted {
		observe(models.EntitySeries, res.Series)
	}
	if res.Color != nil {
		observe(models.EntityColor, *res.Color)
	}
	for _, p := range res.Pairings {
		observe(models.EntityPlayer, p.Player)
		if p.TeamName != nil {
			observe(models.EntityTeam, p.Team)
		}
	}
}

func resolveInput(card models.SubmitCardRequest) ResolveInput {
	return ResolveInput{
		SetName:    card.SetName,
		SeriesName: card.SeriesName,
		ColorName:  card.ColorName,
		PlayerName: card.PlayerName,
		TeamName:   card.TeamName,
		Year:       card.Year,
	}
}

// ValidateBundle checks a bundle before anything is resolved or stored. It
// trims text fields in place; callers keep their own copy of the text as
// typed.
func ValidateBundle(req *models.SubmitBundleRequest) error {
	if req == nil || len(req.Cards) == 0 {
		return apperrors.Validation("a bundle needs at least one card")
	}
	if len(req.Cards) > maxBundleCards {
		return apperrors.Validation("a bundle holds at most %d cards, got %d", maxBundleCards, len(req.Cards))
	}
	for i := range req.Cards {
		if err := validateCard(i+1, &req.Cards[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateCard(n int, c *models.SubmitCardRequest) error {
	prefix := ""
	if n > 0 {
		prefix = fmt.Sprintf("card %d: ", n)
	}
	c.PlayerName = strings.TrimSpace(c.PlayerName)
	c.TeamName = strings.TrimSpace(c.TeamName)
	c.SetName = strings.TrimSpace(c.SetName)
	c.SeriesName = strings.TrimSpace(c.SeriesName)
	c.ColorName = strings.TrimSpace(c.ColorName)
	c.CardNumber = strings.TrimSpace(c.CardNumber)
	c.Notes = strings.TrimSpace(c.Notes)

	switch {
	case len(splitSegments(c.PlayerName)) == 0:
		return apperrors.Validation("%splayer_name is required", prefix)
	case c.SetName == "":
		return apperrors.Validation("%sset_name is required", prefix)
	case c.CardNumber == "":
		return apperrors.Validation("%scard_number is required", prefix)
	case c.Year < minYear || c.Year > maxYear:
		return apperrors.Validation("%syear must be between %d and %d", prefix, minYear, maxYear)
	case c.PrintRun != nil && *c.PrintRun < 1:
		return apperrors.Validation("%sprint_run must be positive", prefix)
	case utf8.RuneCountInString(c.Notes) > maxNotesLength:
		return apperrors.Validation("%snotes must be at most %d characters", prefix, maxNotesLength)
	case c.PurchasePrice != nil && *c.PurchasePrice < 0:
		return apperrors.Validation("%spurchase_price cannot be negative", prefix)
	case c.Condition != "" && !c.Condition.IsValid():
		return apperrors.Validation("%sunknown condition %q", prefix, c.Condition)
	}
	return nil
}

// rejectRepeatedCards refuses a bundle that lists the same set, year, number
// and player twice. cards must already be trimmed.
func rejectRepeatedCards(cards []models.SubmitCardRequest) error {
	seen := make(map[string]int, len(cards))
	for i, c := range cards {
		key := strings.ToLower(strings.Join([]string{c.SetName, strconv.Itoa(c.Year), c.CardNumber, c.PlayerName}, "\x00"))
		if first, ok := seen[key]; ok {
			return &apperrors.Error{
				Kind:    apperrors.KindDuplicate,
				Message: fmt.Sprintf("card %d repeats card %d (%s #%s %s)", i+1, first, c.SetName, c.CardNumber, c.PlayerName),
			}
		}
		seen[key] = i + 1
	}
	return nil
}

// buildProvisionalCard stores the raw text fields as typed; req carries the
// trimmed values used for matching.
func buildProvisionalCard(typed, req models.SubmitCardRequest, res Resolution, position int, thr float64) models.ProvisionalCard {
	card := models.ProvisionalCard{
		Position:         position,
		SetNameRaw:       typed.SetName,
		SeriesNameRaw:    typed.SeriesName,
		ColorNameRaw:     typed.ColorName,
		PlayerNameRaw:    typed.PlayerName,
		TeamNameRaw:      typed.TeamName,
		Year:             req.Year,
		CardNumber:       req.CardNumber,
		PrintRun:         req.PrintRun,
		Notes:            req.Notes,
		Rookie:           req.Rookie,
		Auto:             req.Auto,
		Relic:            req.Relic,
		ShortPrint:       req.ShortPrint,
		ResolvedSetID:    res.Set.ResolvedID(),
		SetConfidence:    res.Set.Confidence(),
		ResolvedSeriesID: res.Series.ResolvedID(),
		SeriesConfidence: res.Series.Confidence(),
	}
	if res.Color != nil {
		card.ResolvedColorID = res.Color.ResolvedID()
		card.ColorConfidence = res.Color.Confidence()
	}

	for _, p := range res.Pairings {
		pairing := models.ProvisionalCardPlayer{
			Position:         p.Position,
			PlayerNameRaw:    p.PlayerName,
			TeamNameRaw:      p.TeamName,
			ResolvedPlayerID: p.Player.ResolvedID(),
			ResolvedTeamID:   p.Team.ResolvedID(),
			AmbiguousPlayer:  p.Player.Ambiguous,
			AutoMatched:      p.Resolved,
			NeedsReview:      !p.Resolved,
		}
		if p.Resolved {
			pairing.ResolvedPlayerTeamID = p.PlayerTeamID
		}
		if p.Player.Best != nil {
			conf := p.Confidence
			pairing.MatchConfidence = &conf
		}
		card.Players = append(card.Players, pairing)
	}

	state := cardReviewState(card, thr)
	card.NeedsReview = state.needsReview
	card.Status = state.status
	card.RequiresNewColor = state.requiresNewColor
	return card
}

func buildCollectionItem(req models.SubmitCardRequest) *models.CollectionItem {
	condition := req.Condition
	if condition == "" {
		condition = models.ConditionNearMint
	}
	return &models.CollectionItem{
		Quantity:        1,
		Condition:       condition,
		SerialNumber:    strings.TrimSpace(req.SerialNumber),
		PurchasePrice:   req.PurchasePrice,
		StorageLocation: strings.TrimSpace(req.StorageLocation),
	}
}

func summarizeCard(res Resolution) models.CardResolutionSummary {
	summary := models.CardResolutionSummary{
		Set:               res.Set.Ref(),
		Series:            res.Series.Ref(),
		FullyResolved:     res.FullyResolved,
		NeedsReview:       !res.FullyResolved,
		RequiresNewSet:    res.RequiresNewSet,
		RequiresNewSeries: res.RequiresNewSeries,
		RequiresNewColor:  res.RequiresNewColor,
		RequiresNewPlayer: res.RequiresNewPlayer,
		RequiresNewTeam:   res.RequiresNewTeam,
		Players:           []models.PairingSummary{},
	}
	if res.Color != nil {
		ref := res.Color.Ref()
		summary.Color = &ref
	}
	for _, p := range res.Pairings {
		ps := models.PairingSummary{
			Position:   p.Position,
			PlayerName: p.PlayerName,
			TeamName:   p.TeamName,
			Player:     p.Player.Ref(),
			Team:       p.Team.Ref(),
			Confidence: p.Confidence,
			Resolved:   p.Resolved,
		}
		if p.Resolved {
			ps.PlayerTeamID = p.PlayerTeamID
		}
		summary.Players = append(summary.Players, ps)
	}
	return summary
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return inflection.Plural(word)
}

// submissionMessage is the contributor-facing one-liner, e.g.
// "3 cards added, 1 pending review".
func submissionMessage(resp *models.SubmitBundleResponse) string {
	added := fmt.Sprintf("%d %s", resp.CardCount, pluralize(resp.CardCount, "card"))
	switch {
	case resp.Approval != nil && len(resp.Approval.Errors) == 0:
		return added + " added to your collection"
	case resp.Approval != nil:
		return fmt.Sprintf("%s added, %d pending review", added, len(resp.Approval.Errors))
	case resp.NeedsReview > 0:
		return fmt.Sprintf("%s added, %d pending review", added, resp.NeedsReview)
	default:
		return added + " added, all matched and awaiting approval"
	}
}
