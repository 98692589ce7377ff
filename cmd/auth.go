package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AmeliaRose802/mailtriage/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		account string
		code    string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate a Google account for mailbox access",
		Long: `Auth runs the OAuth flow for a Google account. Without --code it
prints the authorization URL to visit; run again with --code to
exchange the authorization code and store the token locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := google.MigrateDefaultToken(); err != nil {
				return fmt.Errorf("failed to migrate legacy token: %w", err)
			}

			if code == "" {
				fmt.Println("Visit the following URL to authorize access:")
				fmt.Println()
				fmt.Println(google.GetAuthURL())
				fmt.Println()
				fmt.Printf("Then run: mailtriage auth --account %s --code <authorization-code>\n", account)
				return nil
			}

			if err := google.SaveTokenForAccount(cmd.Context(), account, code); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Printf("Token saved for account %q\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Account name to store the token under")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the OAuth consent page")

	return cmd
}
