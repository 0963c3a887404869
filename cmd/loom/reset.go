package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Archive the workspace and clear all project state",
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	var resp struct {
		ArchivedTo string `json:"archived_to"`
	}
	if err := apiPost("/api/project/reset", map[string]any{}, &resp); err != nil {
		return err
	}
	printStatus("✓", "Project reset", color.FgGreen)
	if resp.ArchivedTo != "" {
		fmt.Printf("Workspace archived to: %s\n", resp.ArchivedTo)
	} else {
		fmt.Println("Workspace was empty, nothing archived")
	}
	return nil
}
