package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var submitPriority int

var submitCmd = &cobra.Command{
	Use:   "submit <requirement>",
	Short: "Submit a requirement to the running server",
	Long: `Submits a natural-language requirement. The server plans an agent chain
for it and returns the task group ID, which can be used to follow progress
with 'loom status' and 'loom tasks'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().IntVarP(&submitPriority, "priority", "p", 5, "Requirement priority")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))

	var resp struct {
		TaskGroupID string `json:"task_group_id"`
	}
	err := apiPost("/api/requirements", map[string]any{
		"text":     text,
		"priority": submitPriority,
	}, &resp)
	if err != nil {
		return err
	}

	printStatus("✓", "Requirement accepted", color.FgGreen)
	fmt.Printf("Task group: %s\n", resp.TaskGroupID)
	return nil
}
