package main

import (
	"fmt"

	"showcase/api/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.ApplyMigrations(cmd.Context(), db, cfg.MigrationsDir); err != nil {
			return err
		}
		logger.Info("migrations applied", zap.String("dir", cfg.MigrationsDir))
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every applied migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.RollbackMigrations(cmd.Context(), db, cfg.MigrationsDir); err != nil {
			return err
		}
		logger.Info("migrations rolled back", zap.String("dir", cfg.MigrationsDir))
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations that have not been applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pending, err := store.PendingMigrations(cmd.Context(), db, cfg.MigrationsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(pending) == 0 {
			fmt.Fprintln(out, "up to date")
			return nil
		}
		for _, version := range pending {
			fmt.Fprintln(out, "pending", version)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}
