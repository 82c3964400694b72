package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/database"
)

// commandContext lazily loads config and opens the store so that --help
// never touches the database.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
	db         *gorm.DB
}

func newRootCommand() *cobra.Command {
	var configFlag string
	cc := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Card catalog operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return cc.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newMigrateCommand(cc))
	rootCmd.AddCommand(newSeedCommand(cc))
	rootCmd.AddCommand(newResolveCommand(cc))
	rootCmd.AddCommand(newBundlesCommand(cc))

	return rootCmd
}

func (cc *commandContext) config() (*config.Config, error) {
	if cc.cfg != nil {
		return cc.cfg, nil
	}
	cfg, err := config.LoadFrom(*cc.configFlag)
	if err != nil {
		return nil, err
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return nil, err
	}
	cc.cfg = cfg
	return cfg, nil
}

// open returns the configured database. migrate controls whether the schema
// is brought up to date first.
func (cc *commandContext) open(ctx context.Context, migrate bool) (*database.Store, error) {
	cfg, err := cc.config()
	if err != nil {
		return nil, err
	}
	if cc.db == nil {
		db, err := database.Open(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		cc.db = db
	}
	if migrate {
		if err := database.Migrate(cc.db); err != nil {
			return nil, err
		}
	}
	return database.NewStore(cc.db), nil
}

func (cc *commandContext) close() error {
	if cc.db == nil {
		return nil
	}
	err := database.Close(cc.db)
	cc.db = nil
	_ = zap.L().Sync()
	return err
}
