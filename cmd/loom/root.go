package main

import (
	"os"

	"github.com/spf13/cobra"
)

// serverURL is the base URL of a running loom server, used by the client
// subcommands.
var serverURL string

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "AI development pipeline orchestrator",
	Long: `Loom turns a natural-language requirement into generated code, a quality
assessment, and deployment integration by coordinating a pipeline of AI
agents: analysis, optional deep reasoning, implementation, validation, and
integration.

Run 'loom serve' to start the orchestrator and HTTP API, then submit
requirements with 'loom submit' or through the API. Tasks, signals, and
artifacts are observable while chains run; decisions raised by agents are
resolved with 'loom decide'.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8321", "Base URL of the loom server")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
