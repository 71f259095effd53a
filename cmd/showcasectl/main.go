// Command showcasectl is the operator CLI for the showcase API: database
// migrations, bootstrap tokens, seed checks and admin password hashes.
package main

import (
	"fmt"
	"os"

	"showcase/api/internal/config"
	"showcase/api/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg     config.Config
	logger  *zap.Logger
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "showcasectl",
	Short:         "Operate the showcase API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		var level zap.AtomicLevel
		logger, level, err = logging.New(cfg.LogLevel, "console")
		if err != nil {
			return err
		}
		if verbose {
			level.SetLevel(zap.DebugLevel)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(migrateCmd, tokenCmd, seedCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
