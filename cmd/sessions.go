package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/nhatdang2003/tms-backend/internal/auth"
	authPostgres "github.com/nhatdang2003/tms-backend/internal/auth/postgres"
	"github.com/nhatdang2003/tms-backend/internal/core/events"
	"github.com/nhatdang2003/tms-backend/pkg/logger"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Session management commands",
}

var revokeSessionsCmd = &cobra.Command{
	Use:   "revoke [user-id]",
	Short: "Revoke every refresh token of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || userID <= 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		logger.Configure(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
		lg := logger.LoggerWrapper()

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		bus := events.NewEventBus(lg)
		auth.SubscribeAudit(bus, lg)

		tokens := auth.NewTokenService(
			auth.NewTokenConfig(cfg.Security, lg),
			authPostgres.NewRefreshTokenRepository(gdb),
			bus,
			nil,
			lg,
		)

		count, err := tokens.RevokeAllUserTokens(context.Background(), userID)
		bus.Wait()
		if err != nil {
			return err
		}

		fmt.Printf("Revoked %d sessions for user %d\n", count, userID)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(revokeSessionsCmd)
}
