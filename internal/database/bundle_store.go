package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/models"
)

// Users

// EnsureUser returns the user row for an authenticated caller, creating it on
// first contact.
func (s *Store) EnsureUser(ctx context.Context, id uint, username string, role models.Role) (*models.User, error) {
	if role == "" {
		role = models.RoleContributor
	}
	user := models.User{ID: id}
	err := s.conn(ctx).Where("id = ?", id).
		Attrs(models.User{Username: username, Role: role}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, eris.Wrapf(err, "database: ensure user %d", id)
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user", id, "get user")
	}
	return &user, nil
}

// AdjustUserPoints adds delta to the user's points, flooring at zero, and
// returns the change actually applied.
func (s *Store) AdjustUserPoints(ctx context.Context, userID uint, delta int) (int, error) {
	var applied int
	err := s.WithTx(ctx, func(tx *Store) error {
		var user models.User
		err := tx.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error
		if err != nil {
			return notFoundOr(err, "user", userID, "load user points")
		}
		next := max(user.Points+delta, 0)
		applied = next - user.Points
		if applied == 0 {
			return nil
		}
		if err := tx.conn(ctx).Model(&models.User{}).Where("id = ?", userID).Update("points", next).Error; err != nil {
			return eris.Wrapf(err, "database: update points for user %d", userID)
		}
		return nil
	})
	return applied, err
}

// Bundles

// CreateBundle persists a bundle, its cards and pairings, and the
// contributor's provisional collection entries in one transaction. items[i]
// belongs to bundle.Cards[i]; a nil entry means no collection entry.
func (s *Store) CreateBundle(ctx context.Context, bundle *models.ProvisionalCardBundle, items []*models.CollectionItem) error {
	if len(items) != 0 && len(items) != len(bundle.Cards) {
		return eris.Errorf("database: %d collection items for %d cards", len(items), len(bundle.Cards))
	}
	if bundle.ID == "" {
		bundle.ID = uuid.NewString()
	}
	if bundle.SubmittedAt.IsZero() {
		bundle.SubmittedAt = time.Now().UTC()
	}
	if bundle.Status == "" {
		bundle.Status = models.BundleStatusPending
	}

	return s.WithTx(ctx, func(tx *Store) error {
		if err := tx.conn(ctx).Omit(clause.Associations).Create(bundle).Error; err != nil {
			return eris.Wrap(err, "database: create bundle")
		}

		for i := range bundle.Cards {
			card := &bundle.Cards[i]
			card.BundleID = bundle.ID
			card.UserID = bundle.UserID
			if card.Position == 0 {
				card.Position = i + 1
			}
			if err := tx.conn(ctx).Create(card).Error; err != nil {
				return eris.Wrapf(err, "database: create provisional card %d", i+1)
			}

			if len(items) == 0 || items[i] == nil {
				continue
			}
			item := items[i]
			item.UserID = bundle.UserID
			item.ProvisionalCardID = &card.ID
			item.IsProvisional = true
			if item.AddedAt.IsZero() {
				item.AddedAt = bundle.SubmittedAt
			}
			if err := tx.conn(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
				return eris.Wrapf(err, "database: create collection item for card %d", i+1)
			}
		}
		return nil
	})
}

func orderedCards(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}

func orderedPairings(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

// GetBundle loads a bundle with its submitter, cards in creation order and
// pairings by position.
func (s *Store) GetBundle(ctx context.Context, id string) (*models.ProvisionalCardBundle, error) {
	var bundle models.ProvisionalCardBundle
	err := s.conn(ctx).
		Preload("User").
		Preload("Cards", orderedCards).
		Preload("Cards.Players", orderedPairings).
		First(&bundle, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "bundle", id, "get bundle")
	}
	return &bundle, nil
}

// ListPendingBundles returns the review queue oldest first.
func (s *Store) ListPendingBundles(ctx context.Context, limit int) ([]models.PendingBundleSummary, error) {
	var bundles []models.ProvisionalCardBundle
	q := s.conn(ctx).Preload("User").
		Where("status = ?", models.BundleStatusPending).
		Order("submitted_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&bundles).Error; err != nil {
		return nil, eris.Wrap(err, "database: list pending bundles")
	}

	out := make([]models.PendingBundleSummary, 0, len(bundles))
	for _, b := range bundles {
		summary := models.PendingBundleSummary{
			ID:                b.ID,
			UserID:            b.UserID,
			SubmittedAt:       b.SubmittedAt,
			CardCount:         b.CardCount,
			AutoResolvedCount: b.AutoResolvedCount,
			NeedsReviewCount:  b.NeedsReviewCount,
			RequiresNewSet:    b.RequiresNewSet,
			RequiresNewSeries: b.RequiresNewSeries,
			RequiresNewPlayer: b.RequiresNewPlayer,
			RequiresNewTeam:   b.RequiresNewTeam,
			TrustLevel:        models.TrustNovice,
		}
		if b.User != nil {
			summary.Username = b.User.Username
			summary.SubmitterPoints = b.User.Points
			summary.TrustLevel = models.TrustLevelForPoints(b.User.Points)
		}
		out = append(out, summary)
	}
	return out, nil
}

// ListUserBundles returns a contributor's bundles, newest first, without cards.
func (s *Store) ListUserBundles(ctx context.Context, userID uint) ([]models.ProvisionalCardBundle, error) {
	var bundles []models.ProvisionalCardBundle
	err := s.conn(ctx).Where("user_id = ?", userID).
		Order("submitted_at DESC, id").Find(&bundles).Error
	if err != nil {
		return nil, eris.Wrapf(err, "database: list bundles for user %d", userID)
	}
	return bundles, nil
}

// ListUserProvisionalCards returns a contributor's provisional cards, newest
// first. An empty status returns every status.
func (s *Store) ListUserProvisionalCards(ctx context.Context, userID uint, status models.ProvisionalStatus) ([]models.ProvisionalCard, error) {
	q := s.conn(ctx).Preload("Players", orderedPairings).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var cards []models.ProvisionalCard
	if err := q.Order("id DESC").Find(&cards).Error; err != nil {
		return nil, eris.Wrapf(err, "database: list provisional cards for user %d", userID)
	}
	return cards, nil
}

// ListUserCollection returns the contributor's collection, canonical and
// provisional entries together.
func (s *Store) ListUserCollection(ctx context.Context, userID uint) (*models.CollectionResponse, error) {
	var items []models.CollectionItem
	err := s.conn(ctx).
		Preload("Card").
		Preload("Card.Series").
		Preload("ProvisionalCard").
		Preload("ProvisionalCard.Players", orderedPairings).
		Where("user_id = ?", userID).
		Order("added_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, eris.Wrapf(err, "database: list collection for user %d", userID)
	}

	var stats models.CollectionStats
	for _, item := range items {
		stats.TotalCards += item.Quantity
		if item.IsProvisional {
			stats.ProvisionalCards += item.Quantity
		} else {
			stats.LinkedCards += item.Quantity
		}
	}
	return &models.CollectionResponse{Items: items, Stats: stats}, nil
}

func (s *Store) GetProvisionalCard(ctx context.Context, id uint) (*models.ProvisionalCard, error) {
	var card models.ProvisionalCard
	err := s.conn(ctx).Preload("Players", orderedPairings).First(&card, id).Error
	if err != nil {
		return nil, notFoundOr(err, "provisional card", id, "get provisional card")
	}
	return &card, nil
}

func (s *Store) GetProvisionalPlayer(ctx context.Context, id uint) (*models.ProvisionalCardPlayer, error) {
	var p models.ProvisionalCardPlayer
	if err := s.conn(ctx).First(&p, id).Error; err != nil {
		return nil, notFoundOr(err, "provisional player", id, "get provisional player")
	}
	return &p, nil
}

// BundleStatus returns the status of a bundle without loading its cards.
func (s *Store) BundleStatus(ctx context.Context, id string) (models.BundleStatus, error) {
	var bundle models.ProvisionalCardBundle
	if err := s.conn(ctx).Select("id", "status").First(&bundle, "id = ?", id).Error; err != nil {
		return "", notFoundOr(err, "bundle", id, "get bundle status")
	}
	return bundle.Status, nil
}

// UpdateProvisionalCard applies column updates to one card row. Map values
// may be nil to clear a column.
func (s *Store) UpdateProvisionalCard(ctx context.Context, id uint, updates map[string]any) error {
	result := s.conn(ctx).Model(&models.ProvisionalCard{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return eris.Wrapf(result.Error, "database: update provisional card %d", id)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("provisional card", id)
	}
	return nil
}

// UpdateProvisionalPlayer applies column updates to one pairing row.
func (s *Store) UpdateProvisionalPlayer(ctx context.Context, id uint, updates map[string]any) error {
	result := s.conn(ctx).Model(&models.ProvisionalCardPlayer{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return eris.Wrapf(result.Error, "database: update provisional player %d", id)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("provisional player", id)
	}
	return nil
}

// UpdateBundleSummary rewrites a bundle's counters and requires_new flags.
func (s *Store) UpdateBundleSummary(ctx context.Context, id string, updates map[string]any) error {
	result := s.conn(ctx).Model(&models.ProvisionalCardBundle{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return eris.Wrapf(result.Error, "database: update bundle %s", id)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("bundle", id)
	}
	return nil
}

// ClaimBundle moves a pending bundle to its terminal status. The conditional
// update makes the transition happen at most once: a second caller sees zero
// affected rows and gets InvalidState. reviewerID 0 records the system
// reviewer.
func (s *Store) ClaimBundle(ctx context.Context, id string, to models.BundleStatus, reviewerID uint, notes string) error {
	now := time.Now().UTC()
	var reviewedBy any
	if reviewerID != 0 {
		reviewedBy = reviewerID
	}
	result := s.conn(ctx).Model(&models.ProvisionalCardBundle{}).
		Where("id = ? AND status = ?", id, models.BundleStatusPending).
		Updates(map[string]any{
			"status":       to,
			"reviewed_at":  now,
			"reviewed_by":  reviewedBy,
			"review_notes": notes,
		})
	if result.Error != nil {
		return eris.Wrapf(result.Error, "database: claim bundle %s", id)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	status, err := s.BundleStatus(ctx, id)
	if err != nil {
		return err
	}
	return apperrors.InvalidState("bundle %s is already %s", id, status)
}

// SetCardStatus sets the status of every card in a bundle and returns how
// many rows changed.
func (s *Store) SetCardStatus(ctx context.Context, bundleID string, status models.ProvisionalStatus) (int, error) {
	result := s.conn(ctx).Model(&models.ProvisionalCard{}).
		Where("bundle_id = ?", bundleID).
		Updates(map[string]any{"status": status})
	if result.Error != nil {
		return 0, eris.Wrapf(result.Error, "database: set card status for bundle %s", bundleID)
	}
	return int(result.RowsAffected), nil
}

// RelinkCollectionItems points a provisional card's collection entries at the
// canonical card. The provisional_card_id is kept for audit.
func (s *Store) RelinkCollectionItems(ctx context.Context, provisionalCardID, cardID uint) (int, error) {
	result := s.conn(ctx).Model(&models.CollectionItem{}).
		Where("provisional_card_id = ? AND is_provisional = ?", provisionalCardID, true).
		Updates(map[string]any{"card_id": cardID, "is_provisional": false})
	if result.Error != nil {
		return 0, eris.Wrapf(result.Error, "database: relink collection for provisional card %d", provisionalCardID)
	}
	return int(result.RowsAffected), nil
}

// DeleteProvisionalCollectionItems removes collection entries still pointing
// at a bundle's provisional cards.
func (s *Store) DeleteProvisionalCollectionItems(ctx context.Context, bundleID string) (int, error) {
	sub := s.conn(ctx).Model(&models.ProvisionalCard{}).Select("id").Where("bundle_id = ?", bundleID)
	result := s.conn(ctx).
		Where("is_provisional = ? AND provisional_card_id IN (?)", true, sub).
		Delete(&models.CollectionItem{})
	if result.Error != nil {
		return 0, eris.Wrapf(result.Error, "database: delete provisional collection for bundle %s", bundleID)
	}
	return int(result.RowsAffected), nil
}

// CountPendingBundles is used by the metrics gauge.
func (s *Store) CountPendingBundles(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.ProvisionalCardBundle{}).
		Where("status = ?", models.BundleStatusPending).Count(&n).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, eris.Wrap(err, "database: count pending bundles")
	}
	return n, nil
}

// FindPendingDuplicate returns the id of a card the user already has waiting
// in a pending bundle with the same set, year, number and player text. Stored
// raw text keeps the contributor's whitespace, so it is trimmed here.
func (s *Store) FindPendingDuplicate(ctx context.Context, userID uint, setName string, year int, cardNumber, playerName string) (uint, bool, error) {
	var card models.ProvisionalCard
	err := s.conn(ctx).
		Joins("JOIN provisional_card_bundles b ON b.id = provisional_cards.bundle_id").
		Where("provisional_cards.user_id = ? AND b.status = ?", userID, models.BundleStatusPending).
		Where("LOWER(TRIM(provisional_cards.set_name_raw)) = LOWER(?)", setName).
		Where("provisional_cards.year = ? AND LOWER(provisional_cards.card_number) = LOWER(?)", year, cardNumber).
		Where("LOWER(TRIM(provisional_cards.player_name_raw)) = LOWER(?)", playerName).
		Order("provisional_cards.id").
		Select("provisional_cards.id").
		First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrap(err, "database: find pending duplicate")
	}
	return card.ID, true, nil
}
