package cli

import (
	"github.com/cloo-solutions/docingest/internal/database"
	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/cloo-solutions/docingest/migrations"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return domain.ConfigError("DATABASE_URL is required to migrate", nil)
			}
			return database.RunMigrations(cfg.DatabaseURL, migrations.FS)
		},
	}
}
