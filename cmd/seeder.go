package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nhatdang2003/tms-backend/internal/seed"
	"github.com/nhatdang2003/tms-backend/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles, permissions and the admin account",
	Long:  `Seed the default roles and permissions and create the first administrator.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		logger.Configure(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		password := adminPassword
		if password == "" {
			password = os.Getenv("SEED_ADMIN_PASSWORD")
		}

		res, err := seed.NewSeeder(gdb, logger.LoggerWrapper()).Run(context.Background(), seed.Options{
			AdminEmail:    adminEmail,
			AdminPassword: password,
			BCryptCost:    cfg.Security.BCryptCost,
			Clear:         clearData,
		})
		if err != nil {
			log.Fatalf("seed failed: %v", err)
		}

		fmt.Printf("Seeded %d roles and %d permissions\n", res.Roles, res.Permissions)
		if res.AdminNew {
			fmt.Println("Created admin user:", adminEmail)
		} else {
			fmt.Println("Admin user already exists; ensured ADMIN role:", adminEmail)
		}
	},
}

func init() {
	seedCmd.Flags().StringVar(&adminEmail, "admin-email", "admin@tms.local", "e-mail of the initial administrator")
	seedCmd.Flags().StringVar(&adminPassword, "admin-password", "", "password of the initial administrator (defaults to SEED_ADMIN_PASSWORD)")
}
