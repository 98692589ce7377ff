package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mailtriage application
var rootCmd = &cobra.Command{
	Use:   "mailtriage",
	Short: "Classifies inbox emails into action categories with AI",
	Long: `mailtriage scans your Gmail inbox, classifies each email with an AI
model into action categories (required actions, optional actions, job
listings, FYI notices), and records the resulting tasks so nothing
slips through.

It can run as:
  - A standalone CLI tool (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailtriage version %s\n" .Version}}`)

	// If no subcommand is provided, run the triage command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "triage")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mailtriage version %s\n", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newTriageCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
