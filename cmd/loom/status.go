package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project status and agent activity",
	RunE:  runStatus,
}

type projectStatus struct {
	Requirements     int `json:"requirements"`
	TotalTasks       int `json:"total_tasks"`
	Pending          int `json:"pending"`
	Running          int `json:"running"`
	Completed        int `json:"completed"`
	Failed           int `json:"failed"`
	Skipped          int `json:"skipped"`
	Progress         int `json:"progress"`
	ActiveAgents     int `json:"active_agents"`
	PendingDecisions int `json:"pending_decisions"`
	HealthScore      int `json:"health_score"`
}

type agentInfo struct {
	Name           string    `json:"name"`
	Capability     string    `json:"capability"`
	Specialization string    `json:"specialization"`
	State          string    `json:"state"`
	CurrentTask    string    `json:"current_task"`
	LastActivity   time.Time `json:"last_activity"`
	Invocations    int       `json:"invocations"`
	Failures       int       `json:"failures"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	var st projectStatus
	if err := apiGet("/api/status", &st); err != nil {
		return err
	}
	var agentsResp struct {
		Agents []agentInfo `json:"agents"`
	}
	if err := apiGet("/api/agents", &agentsResp); err != nil {
		return err
	}
	agents := agentsResp.Agents

	bold := color.New(color.Bold)
	bold.Println("Project")
	fmt.Printf("  Requirements: %d   Tasks: %d   Progress: %d%%\n",
		st.Requirements, st.TotalTasks, st.Progress)
	fmt.Printf("  Pending: %d   Running: %d   Completed: %d   Failed: %d   Skipped: %d\n",
		st.Pending, st.Running, st.Completed, st.Failed, st.Skipped)

	health := color.New(color.FgGreen)
	switch {
	case st.HealthScore < 50:
		health = color.New(color.FgRed)
	case st.HealthScore < 80:
		health = color.New(color.FgYellow)
	}
	fmt.Print("  Health: ")
	health.Printf("%d\n", st.HealthScore)
	if st.PendingDecisions > 0 {
		color.New(color.FgYellow).Printf("  %d decision(s) pending, see 'loom signals'\n", st.PendingDecisions)
	}

	fmt.Println()
	bold.Println("Agents")
	for _, a := range agents {
		c := color.New(color.FgGreen)
		switch a.State {
		case "working":
			c = color.New(color.FgYellow)
		case "error":
			c = color.New(color.FgRed)
		}
		fmt.Printf("  %-22s %-12s ", a.Name, a.Capability)
		c.Printf("%-8s", a.State)
		fmt.Printf(" invocations=%d failures=%d", a.Invocations, a.Failures)
		if a.CurrentTask != "" {
			fmt.Printf(" task=%s", a.CurrentTask)
		}
		fmt.Println()
	}
	return nil
}
