package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand(cc *commandContext) *cobra.Command {
	var lockPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and data backfills",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			if lockPath == "" {
				lockPath = defaultLockPath(cfg.Store.Driver, cfg.Store.SQLitePath)
			}

			lock := flock.New(lockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return eris.Wrap(err, "acquire migration lock")
			}
			if !ok {
				return fmt.Errorf("another migration holds %s", lockPath)
			}
			defer func() { _ = lock.Unlock() }()

			if _, err := cc.open(cmd.Context(), true); err != nil {
				return err
			}
			zap.L().Info("migration finished", zap.String("lock", lockPath))
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&lockPath, "lock", "", "Lock file guarding concurrent migrations")
	return cmd
}

// defaultLockPath keeps the lock next to a sqlite file so two processes
// sharing the file share the lock.
func defaultLockPath(driver, sqlitePath string) string {
	if (driver == "sqlite" || driver == "") && sqlitePath != "" {
		return sqlitePath + ".migrate.lock"
	}
	return filepath.Join(os.TempDir(), "cardcatalog-migrate.lock")
}
