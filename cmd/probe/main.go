// Command formcoach-probe exercises a running formcoach server end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/formcoach/internal/probe"
	"github.com/okian/formcoach/pkg/logger"
)

// Default configuration constants.
const (
	defaultAthletes = 20
	defaultAnalyses = 500
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultRPS      = 15
	defaultLimit    = 20
	defaultTimeout  = 30 * time.Second
	defaultDeadline = 10 * time.Minute
)

func main() {
	if err := newProbeCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newProbeCommand() *cobra.Command {
	cfg := &probe.Config{}
	var verbose bool

	cmd := &cobra.Command{
		Use:   "formcoach-probe",
		Short: "Smoke and load test a running formcoach server",
		Long: `formcoach-probe checks /healthz, creates athlete profiles, submits paced
analyses from concurrent workers and verifies every athlete's session
listing is newest first and bounded by --limit.

Examples:
  formcoach-probe --url http://localhost:9080
  formcoach-probe --analyses 5000 --workers 16 --rps 0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			if verbose {
				_ = logger.SetLevelString("debug")
			}
			cfg.Verbose = verbose

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, defaultDeadline)
			defer cancel()

			_, err := probe.Run(ctx, cfg, cmd.OutOrStdout())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.Athletes, "athletes", defaultAthletes, "athlete profiles to create")
	f.IntVar(&cfg.Analyses, "analyses", defaultAnalyses, "analyses to submit")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "concurrent workers")
	f.Float64Var(&cfg.RPS, "rps", defaultRPS, "request rate across all workers (0 disables pacing)")
	f.IntVar(&cfg.Limit, "limit", defaultLimit, "listing limit used during verification")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.Int64Var(&cfg.Seed, "seed", 0, "payload seed (0 uses the clock)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every failed request")
	return cmd
}
