package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var signalsType string

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "List signals raised by the agent pipeline",
	RunE:  runSignals,
}

func init() {
	signalsCmd.Flags().StringVarP(&signalsType, "type", "t", "", "Filter by signal type")
}

type signalInfo struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Source       string         `json:"source"`
	Data         map[string]any `json:"data"`
	CreatedAt    time.Time      `json:"created_at"`
	Resolved     bool           `json:"resolved"`
	ChosenOption string         `json:"chosen_option"`
}

func runSignals(cmd *cobra.Command, args []string) error {
	path := "/api/signals"
	if signalsType != "" {
		path += "?type=" + url.QueryEscape(signalsType)
	}
	var resp struct {
		Signals []signalInfo `json:"signals"`
	}
	if err := apiGet(path, &resp); err != nil {
		return err
	}
	signals := resp.Signals
	if len(signals) == 0 {
		fmt.Println("No signals")
		return nil
	}

	for _, s := range signals {
		marker := color.New(color.FgYellow)
		state := "pending"
		if s.Resolved {
			marker = color.New(color.FgGreen)
			state = "resolved"
		}
		marker.Printf("%-8s", state)
		fmt.Printf(" %-22s %s  %s\n", s.Type, s.ID, s.CreatedAt.Local().Format("15:04:05"))
		fmt.Printf("         from %s\n", s.Source)
		if opts, ok := s.Data["options"].([]any); ok && len(opts) > 0 {
			fmt.Printf("         options: %v\n", opts)
		}
		if s.ChosenOption != "" {
			fmt.Printf("         chosen: %s\n", s.ChosenOption)
		}
	}
	return nil
}
