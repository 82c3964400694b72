package database

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/textnorm"
)

// Store is the persistence boundary for canonical entities and provisional
// bundles. A Store returned inside WithTx shares that transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// WithTx runs fn in a transaction. Calling WithTx on a Store that is already
// inside a transaction opens a savepoint, so a failing inner unit rolls back
// alone.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return eris.Wrap(err, "database: handle")
	}
	return sqlDB.PingContext(ctx)
}

// SetSlug builds a set's natural key, adding the year when the name lacks it.
func SetSlug(name string, year int) string {
	slug := textnorm.Slug(name)
	if year == 0 {
		return slug
	}
	y := strconv.Itoa(year)
	for _, part := range strings.Split(slug, "-") {
		if part == y {
			return slug
		}
	}
	if slug == "" {
		return y
	}
	return y + "-" + slug
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFoundOr(err error, entity string, id any, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(entity, id)
	}
	return eris.Wrapf(err, "database: %s", op)
}
