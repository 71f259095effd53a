package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"showcase/api/internal/authpw"

	"github.com/spf13/cobra"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Long: `Print a bcrypt hash for ADMIN_PASSWORD_HASH.

Without an argument the password is read from the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password on stdin")
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password is empty")
	}
	hash, err := authpw.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
