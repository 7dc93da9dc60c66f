package cmd

import (
	"context"
	"fmt"
	"time"

	sessionRepo "github.com/frahmantamala/billable-dashboard/internal/session/postgres"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Tab session store maintenance",
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete tab sessions idle for longer than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		return purgeSessions(context.Background(), cmd.Flags().Changed("older-than"))
	},
}

var purgeOlderThan time.Duration

func purgeSessions(ctx context.Context, explicit bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	olderThan := purgeOlderThan
	if !explicit {
		olderThan = cfg.Security.IdleTTL()
	}
	lg := logger.Configure(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	gdb, err := initGorm(db, lg)
	if err != nil {
		return err
	}

	n, err := sessionRepo.NewRepository(gdb).Purge(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	lg.Info("tab sessions purged", "rows", n, "older_than", olderThan)
	return nil
}

func init() {
	sessionsPurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 24*time.Hour, "idle time after which a tab session is removed; security.session_idle_ttl when not given")
	sessionsCmd.AddCommand(sessionsPurgeCmd)
}
