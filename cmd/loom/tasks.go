package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tasksGroup string

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List pipeline tasks",
	RunE:  runTasks,
}

func init() {
	tasksCmd.Flags().StringVarP(&tasksGroup, "group", "g", "", "Only show tasks for this task group")
}

type taskInfo struct {
	ID          string     `json:"id"`
	GroupID     string     `json:"group_id"`
	Description string     `json:"description"`
	Capability  string     `json:"capability"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	Progress    int        `json:"progress"`
	Error       string     `json:"error"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func statusColor(status string) *color.Color {
	switch status {
	case "completed":
		return color.New(color.FgGreen)
	case "running":
		return color.New(color.FgYellow)
	case "failed":
		return color.New(color.FgRed)
	case "skipped":
		return color.New(color.FgCyan)
	default:
		return color.New(color.Faint)
	}
}

func runTasks(cmd *cobra.Command, args []string) error {
	path := "/api/tasks"
	if tasksGroup != "" {
		path += "?group_id=" + url.QueryEscape(tasksGroup)
	}
	var resp struct {
		Tasks []taskInfo `json:"tasks"`
	}
	if err := apiGet(path, &resp); err != nil {
		return err
	}
	tasks := resp.Tasks
	if len(tasks) == 0 {
		fmt.Println("No tasks")
		return nil
	}

	lastGroup := ""
	for _, t := range tasks {
		if t.GroupID != lastGroup {
			if lastGroup != "" {
				fmt.Println()
			}
			color.New(color.Bold).Printf("Group %s\n", t.GroupID)
			lastGroup = t.GroupID
		}
		statusColor(t.Status).Printf("  %-10s", t.Status)
		fmt.Printf(" %-12s p%-2d %3d%%  %s", t.Capability, t.Priority, t.Progress, t.Description)
		if t.Error != "" {
			color.New(color.FgRed).Printf("  (%s)", t.Error)
		}
		fmt.Println()
	}
	return nil
}
