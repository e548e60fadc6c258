package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxcal/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate a Google account",
		Long: `Authorize inboxcal to read your Gmail inbox and manage your calendar.

Opens an OAuth consent flow: visit the printed URL, grant access, and paste
the authorization code back. The token is cached locally per account, so
this only needs to be done once per account.

Requires GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET to be set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if google.HasTokenForAccount(account) {
				fmt.Fprintf(cmd.OutOrStdout(), "Account %q is already authenticated. Continuing will replace the stored token.\n", account)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Visit the following URL to authorize access:\n\n%s\n\nEnter authorization code: ", google.GetAuthURL())

			reader := bufio.NewReader(cmd.InOrStdin())
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("authorization code cannot be empty")
			}

			if err := google.SaveTokenForAccount(cmd.Context(), account, code); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token saved for account %q.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Name to store the token under")
	return cmd
}
