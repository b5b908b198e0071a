package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmerrifield20/reportledger/internal/identity"
	"github.com/spf13/cobra"
)

// ── token ────────────────────────────────────────────────────────────────────

var (
	tokenSecret  string
	tokenSubject string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain a registrar token for writing report cards",
	Long: `token prints a registrar bearer token.

With --server it exchanges the registrar secret at POST /api/v1/auth/token.
Without --server it signs the token locally with auth.signing_secret, which
is useful for operators holding the server configuration.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "registrar secret (default $REPORTLEDGER_SECRET)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "registrar", "token subject")
}

func runToken(cmd *cobra.Command, args []string) error {
	var tok string
	if serverURL != "" {
		secret := tokenSecret
		if secret == "" {
			secret = os.Getenv("REPORTLEDGER_SECRET")
		}
		if secret == "" {
			return errors.New("--secret or REPORTLEDGER_SECRET is required with --server")
		}
		c, err := newClient("")
		if err != nil {
			return err
		}
		if tok, err = c.IssueToken(context.Background(), secret, tokenSubject); err != nil {
			return err
		}
	} else {
		tokens, err := registrarTokens()
		if err != nil {
			return err
		}
		if tokens == nil {
			return errors.New("auth.signing_secret is not configured")
		}
		if tok, err = tokens.Issue(tokenSubject); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

// ── hash-secret ──────────────────────────────────────────────────────────────

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret",
	Short: "Hash a registrar secret for auth.registrar_secret_hash",
	Long:  `hash-secret reads a secret from stdin and prints its bcrypt hash.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read secret: %w", err)
		}
		hash, err := identity.HashSecret(strings.TrimRight(line, "\r\n"))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
