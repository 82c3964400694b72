package database

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// sqliteDSN appends the pragmas every connection needs. modernc's driver
// applies _pragma parameters on each new connection in the pool.
func sqliteDSN(path string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + strings.TrimPrefix(path, "file:") + sep + params.Encode()
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        sqliteDSN(path),
	}), gormCfg)
	if err != nil {
		return nil, eris.Wrapf(err, "database: open sqlite %s", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "database: sqlite handle")
	}
	// One writer at a time keeps SQLITE_BUSY out of review transactions.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
