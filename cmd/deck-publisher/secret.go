package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-publisher/internal/config"
	"github.com/ramonehamilton/deck-publisher/internal/secrets"
)

func newSecretCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Protect marketplace credentials",
	}
	cmd.AddCommand(newSecretEncryptCmd(a))
	return cmd
}

func newSecretEncryptCmd(a *app) *cobra.Command {
	var passphraseEnv string

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt the marketplace password read from stdin",
		Long: `Encrypt the marketplace password read from the first line of stdin.

The passphrase is taken from the environment. Store the printed value as
WEBAPI_PASSWORD in the environment's .env file and export the same passphrase
when publishing.`,
		Example: `  printf 'hunter2\n' | DECK_PUBLISHER_PASSPHRASE=... deck-publisher secret encrypt`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv(passphraseEnv)
			if passphrase == "" {
				return fmt.Errorf("set %s to the passphrase", passphraseEnv)
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}

			token, err := secrets.Encrypt(password, passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&passphraseEnv, "passphrase-env", config.PassphraseVar, "Environment variable holding the passphrase")
	return cmd
}
