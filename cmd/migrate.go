package cmd

import (
	"github.com/spf13/cobra"
	"github.com/username/salesetl/src/config"
	"github.com/username/salesetl/src/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending warehouse schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.RunMigrations(config.Cfg.DatabaseDriver, warehouseDSN(config.Cfg))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
