package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentrunner/internal/config"
)

// main is the entry point for the agentrunner CLI. Exit codes: 0 success,
// 1 initialization or query failure.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "agentrunner",
		Short:        "agentrunner - an agentic task runner",
		Long:         "agentrunner decomposes a natural-language goal into an ordered plan, executes each step against a tool registry or the LM directly, and re-evaluates the plan after every successful step.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (optional)")

	rootCmd.AddCommand(
		buildQueryCmd(&configPath),
		buildInteractiveCmd(&configPath),
		buildServeCmd(&configPath),
	)
	return rootCmd
}

func buildQueryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "query <text>",
		Short: "Run one request and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rt, err := newRuntime(cfg, slog.Default())
			if err != nil {
				return fmt.Errorf("initialize runtime: %w", err)
			}
			defer rt.Close()

			response, err := rt.Query(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), response)
			return nil
		},
	}
}
