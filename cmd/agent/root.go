package main

import (
	"browser-pause-agent/internal/bootstrap"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const stopTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Browser agent that pauses for a human on sensitive pages",
	Long: `agent drives a Chromium browser with an LLM and hands control back to you
whenever a page asks for passwords, codes or captchas. Without --task it
starts an interactive console.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringP("task", "t", "", "run a single task and exit")
}

func run(cmd *cobra.Command, _ []string) error {
	task, err := cmd.Flags().GetString("task")
	if err != nil {
		return err
	}

	app := bootstrap.NewApp(bootstrap.Options{Task: task})

	startCtx, cancelStart := context.WithTimeout(cmd.Context(), app.StartTimeout())
	defer cancelStart()

	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	sig := <-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop agent: %w", err)
	}

	if sig.ExitCode != 0 {
		return fmt.Errorf("agent exited with code %d", sig.ExitCode)
	}

	return nil
}
