package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/postgres"
)

// NewPurgeCmd creates the purge subcommand.
func NewPurgeCmd() *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions and old tokens",
		Long: `Deletes every expired session, and every token that expired more than
the retention period ago. Used and locked tokens are kept until then so
replays keep failing with "already used" rather than "not found".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("retention") {
				cfg.Purge.Retention = retention
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

			res, err := purge(ctx, postgres.New(pool), time.Now().UTC(), cfg.Purge.Retention)
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "purge complete", "sessions", res.Sessions, "tokens", res.Tokens)
			cmd.Printf("Purged %d sessions and %d tokens.\n", res.Sessions, res.Tokens)
			return nil
		},
	}

	cmd.Flags().DurationVar(&retention, "retention", 0, "keep expired tokens this long (default from purge.retention)")
	return cmd
}

func purge(ctx context.Context, p store.Purger, now time.Time, retention time.Duration) (store.PurgeResult, error) {
	return p.PurgeExpired(ctx, now, now.Add(-retention))
}
