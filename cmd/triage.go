package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AmeliaRose802/mailtriage/internal/ai"
	"github.com/AmeliaRose802/mailtriage/internal/google"
	"github.com/AmeliaRose802/mailtriage/internal/mailbox"
	"github.com/AmeliaRose802/mailtriage/internal/triage"
)

func newTriageCmd() *cobra.Command {
	var (
		account    string
		query      string
		maxResults int64
		model      string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Classify inbox messages and record outstanding tasks",
		Long: `Triage fetches messages from the mailbox, classifies each one with
the configured model, merges the resulting action records into the
local task store, and records the run in the accuracy history.

The classification report is printed as JSON on stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger(debug)

			if !mailbox.HasTokenForAccount(account) {
				return fmt.Errorf("%s", google.GetAuthenticationErrorMessage(account))
			}

			completer, err := newCompleter(ctx, model, logger)
			if err != nil {
				return err
			}

			dir := dataDir()
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			store, tracker, err := openStores(dir, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			defer tracker.Close()

			client, err := mailbox.NewClientForAccount(ctx, account)
			if err != nil {
				return fmt.Errorf("failed to create mailbox client: %w", err)
			}

			messages, err := client.ListMessages(query, maxResults)
			if err != nil {
				return fmt.Errorf("failed to list messages: %w", err)
			}

			emails := make([]triage.Email, 0, len(messages))
			for _, m := range messages {
				emails = append(emails, triage.Email{
					ID:           m.ID,
					Subject:      m.Subject,
					Sender:       m.Sender,
					Recipient:    m.Recipient,
					Body:         m.Body,
					ReceivedDate: m.ReceivedDate,
				})
			}

			pipeline := triage.NewPipeline(completer, store, tracker, logger, nil)
			report, err := pipeline.Run(ctx, emails)
			if err != nil {
				return fmt.Errorf("triage run failed: %w", err)
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal report: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to use")
	cmd.Flags().StringVar(&query, "query", mailbox.DefaultQuery, "Mailbox search query")
	cmd.Flags().Int64Var(&maxResults, "max-results", 50, "Maximum number of messages to triage")
	cmd.Flags().StringVar(&model, "model", ai.DefaultModel, "Gemini model for classification")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}
