package database

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/models"
)

// AllModels lists every table in dependency order.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.Manufacturer{},
		&models.Organization{},
		&models.Set{},
		&models.Series{},
		&models.Player{},
		&models.Team{},
		&models.PlayerTeam{},
		&models.Color{},
		&models.Card{},
		&models.CardPlayer{},
		&models.ProvisionalCardBundle{},
		&models.ProvisionalCard{},
		&models.ProvisionalCardPlayer{},
		&models.CollectionItem{},
	}
}

// Open connects to the configured backend. It does not migrate.
func Open(ctx context.Context, cfg config.StoreConfig) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		db, err = openSQLite(cfg.SQLitePath, gormCfg)
	case "postgres":
		db, err = openPostgres(ctx, cfg.DatabaseURL, gormCfg)
	default:
		return nil, eris.Errorf("database: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("database connected", zap.String("driver", db.Dialector.Name()))
	return db, nil
}

// Migrate brings the schema up to date and runs data backfills.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return eris.Wrap(err, "database: auto-migrate")
	}
	if err := RunMigrations(db); err != nil {
		return err
	}
	zap.L().Info("database migration completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return eris.Wrap(err, "database: close")
	}
	return sqlDB.Close()
}
