package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AmeliaRose802/mailtriage/internal/taskstore"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and update the local task store",
	}

	cmd.AddCommand(newTasksListCmd())
	cmd.AddCommand(newTasksCompleteCmd())

	return cmd
}

func newTasksListCmd() *cobra.Command {
	var actionType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outstanding tasks grouped by action type",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(false)
			store, tracker, err := openStores(dataDir(), logger)
			if err != nil {
				return err
			}
			defer store.Close()
			defer tracker.Close()

			snapshot, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load tasks: %w", err)
			}

			outstanding := taskstore.Snapshot{}
			for bucket, records := range snapshot {
				if actionType != "" && bucket != actionType {
					continue
				}
				for _, r := range records {
					if !r.Completed {
						outstanding[bucket] = append(outstanding[bucket], r)
					}
				}
			}

			out, err := json.MarshalIndent(outstanding, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal tasks: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&actionType, "action-type", "", "Only list tasks with this action type")

	return cmd
}

func newTasksCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id> [task-id...]",
		Short: "Mark tasks as completed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(false)
			store, tracker, err := openStores(dataDir(), logger)
			if err != nil {
				return err
			}
			defer store.Close()
			defer tracker.Close()

			if err := store.MarkCompleted(cmd.Context(), args, time.Now()); err != nil {
				return fmt.Errorf("failed to mark tasks completed: %w", err)
			}

			fmt.Printf("Marked %d task(s) completed\n", len(args))
			return nil
		},
	}
}
