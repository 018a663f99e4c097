package main

import (
	"github.com/spf13/cobra"

	"github.com/MrEthical07/goAccount/store/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := openPostgres(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.MigratePool(ctx, pool); err != nil {
				return err
			}
			logger.InfoContext(ctx, "migrations applied")
			cmd.Println("Migrations applied.")
			return nil
		},
	}
}
