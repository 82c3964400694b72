package database

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/cardcatalog/internal/models"
	"github.com/codyseavey/cardcatalog/internal/textnorm"
)

// RunMigrations runs data backfills after schema changes. Each step is
// idempotent.
func RunMigrations(db *gorm.DB) error {
	if err := backfillPlayerNormalizedNames(db); err != nil {
		return err
	}
	if err := backfillSlugs(db); err != nil {
		return err
	}
	if err := backfillCollectionDefaults(db); err != nil {
		return err
	}
	if err := backfillCardKeys(db); err != nil {
		return err
	}
	return nil
}

// backfillPlayerNormalizedNames fills normalized_name for players inserted
// before the column existed or by raw SQL imports.
func backfillPlayerNormalizedNames(db *gorm.DB) error {
	var players []models.Player
	if err := db.Where("normalized_name IS NULL OR normalized_name = ''").Find(&players).Error; err != nil {
		return eris.Wrap(err, "database: load players for backfill")
	}
	for _, p := range players {
		if err := db.Model(&models.Player{}).Where("id = ?", p.ID).
			Update("normalized_name", textnorm.Normalize(p.Name)).Error; err != nil {
			return eris.Wrapf(err, "database: backfill player %d", p.ID)
		}
	}
	if len(players) > 0 {
		zap.L().Info("backfilled player normalized names", zap.Int("count", len(players)))
	}
	return nil
}

func backfillSlugs(db *gorm.DB) error {
	var sets []models.Set
	if err := db.Where("slug IS NULL OR slug = ''").Find(&sets).Error; err != nil {
		return eris.Wrap(err, "database: load sets for backfill")
	}
	for _, s := range sets {
		if err := db.Model(&models.Set{}).Where("id = ?", s.ID).Update("slug", SetSlug(s.Name, s.Year)).Error; err != nil {
			return eris.Wrapf(err, "database: backfill set slug %d", s.ID)
		}
	}

	var series []models.Series
	if err := db.Where("slug IS NULL OR slug = ''").Find(&series).Error; err != nil {
		return eris.Wrap(err, "database: load series for backfill")
	}
	for _, s := range series {
		if err := db.Model(&models.Series{}).Where("id = ?", s.ID).Update("slug", textnorm.Slug(s.Name)).Error; err != nil {
			return eris.Wrapf(err, "database: backfill series slug %d", s.ID)
		}
	}
	return nil
}

func backfillCollectionDefaults(db *gorm.DB) error {
	result := db.Exec(`UPDATE collection_items SET condition = ? WHERE condition IS NULL OR condition = ''`, models.ConditionNearMint)
	if result.Error != nil {
		return eris.Wrap(result.Error, "database: backfill collection conditions")
	}
	result = db.Exec(`UPDATE collection_items SET quantity = 1 WHERE quantity IS NULL OR quantity < 1`)
	if result.Error != nil {
		return eris.Wrap(result.Error, "database: backfill collection quantities")
	}
	return nil
}

// backfillCardKeys keys cards stored before card_key existed. A later copy of
// an already keyed card is left unkeyed and logged for manual cleanup.
func backfillCardKeys(db *gorm.DB) error {
	var cards []models.Card
	if err := db.Where("card_key IS NULL OR card_key = ''").Order("id").Find(&cards).Error; err != nil {
		return eris.Wrap(err, "database: load cards for backfill")
	}
	keyed := 0
	for _, c := range cards {
		key := models.CardKeyFor(c.SeriesID, c.CardNumber, c.ColorID)
		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Model(&models.Card{}).Where("id = ?", c.ID).Update("card_key", key).Error
		})
		if err != nil && isUniqueViolation(err) {
			zap.L().Warn("duplicate canonical card left unkeyed",
				zap.Uint("card_id", c.ID), zap.String("card_key", key))
			continue
		}
		if err != nil {
			return eris.Wrapf(err, "database: backfill card key %d", c.ID)
		}
		keyed++
	}
	if keyed > 0 {
		zap.L().Info("backfilled card keys", zap.Int("count", keyed))
	}
	return nil
}
