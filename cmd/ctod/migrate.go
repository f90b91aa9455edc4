package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cto-inventory-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		gormDB, err := db.Init(&cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	},
}
