package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var decideCmd = &cobra.Command{
	Use:   "decide <signal-id> <option>",
	Short: "Resolve a pending decision signal",
	Args:  cobra.ExactArgs(2),
	RunE:  runDecide,
}

func runDecide(cmd *cobra.Command, args []string) error {
	err := apiPost("/api/decisions", map[string]any{
		"signal_id":     args[0],
		"chosen_option": args[1],
	}, nil)
	if err != nil {
		return err
	}
	printStatus("✓", "Decision recorded: "+args[1], color.FgGreen)
	return nil
}
