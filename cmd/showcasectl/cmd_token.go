package main

import (
	"fmt"
	"time"

	"showcase/api/internal/auth"

	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

// tokenCmd mints the INITIAL_AUTH_TOKEN a deployment signs in with.
var tokenCmd = &cobra.Command{
	Use:   "token <uid>",
	Short: "Mint a bootstrap token for uid",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 365*24*time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	token, err := auth.MintBootstrapToken([]byte(cfg.BootstrapSecret), args[0], tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
