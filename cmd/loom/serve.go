package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/config"
	"github.com/loomworks/loom/internal/connector"
	"github.com/loomworks/loom/internal/httpapi"
	"github.com/loomworks/loom/internal/orchestrator"
	"github.com/loomworks/loom/internal/signalbus"
	"github.com/loomworks/loom/internal/state"
	"github.com/loomworks/loom/internal/version"
	"github.com/loomworks/loom/internal/workspace"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestrator and HTTP API",
	Long: `Starts the loom orchestrator in the current project directory and serves
the HTTP API and event stream until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return err
	}

	ws, err := workspace.New(cfg.Workspace.Dir)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Workspace: %s", cfg.Workspace.Dir), color.FgGreen)

	audit, err := state.Open(state.ProjectDBPath(projectRoot))
	if err != nil {
		return fmt.Errorf("opening audit database: %w", err)
	}
	defer audit.Close()
	if err := audit.Migrate(); err != nil {
		return fmt.Errorf("migrating audit database: %w", err)
	}
	printStatus("✓", "Audit database ready", color.FgGreen)

	logger := orchestrator.NewDebugLoggerForProject(projectRoot)
	defer logger.Close()

	obs := connector.ObserverFunc(func(ev connector.LogEvent) {
		logger.Log("[%s] %s: %s", ev.Capability, ev.Level, ev.Message)
	})
	conns, err := buildConnectors(cfg, obs)
	if err != nil {
		return err
	}
	printStatus("✓", "Agent connectors configured", color.FgGreen)

	orch, err := orchestrator.New(orchestrator.Config{
		Connectors: conns,
		Bus:        signalbus.New(),
		Workspace:  ws,
		Audit:      audit,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	api := httpapi.NewServer(orch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		err := ws.Watch(ctx, func(ev workspace.FileEvent) {
			api.PublishEvent(map[string]any{
				"type":      "workspace_file",
				"name":      ev.Name,
				"op":        ev.Op,
				"timestamp": time.Now().UTC(),
			})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Log("workspace watcher stopped: %v", err)
		}
	}()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	printStatus("✓", fmt.Sprintf("loom %s listening on http://%s", version.Get(), addr), color.FgGreen)
	fmt.Println("Press Ctrl+C to stop")

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	fmt.Println("Shutting down, waiting for running chains...")
	orch.Close()
	return nil
}
