package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AmeliaRose802/mailtriage/internal/tools/accuracy_tools"
)

func newStatsCmd() *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show classification accuracy trends",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(false)
			store, tracker, err := openStores(dataDir(), logger)
			if err != nil {
				return err
			}
			defer store.Close()
			defer tracker.Close()

			trends, err := tracker.Trends(cmd.Context(), window)
			if err != nil {
				return fmt.Errorf("failed to compute trends: %w", err)
			}

			dashboard, err := tracker.DashboardMetrics(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to compute dashboard metrics: %w", err)
			}

			report := struct {
				Trends    interface{} `json:"trends"`
				Dashboard interface{} `json:"dashboard"`
			}{Trends: trends, Dashboard: dashboard}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal report: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&window, "window", accuracy_tools.DefaultTrendWindow, "Number of recent sessions to average over")

	return cmd
}
