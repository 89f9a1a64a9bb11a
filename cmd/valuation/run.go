package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"valora/internal/pipelineclient"
	"valora/internal/services"
)

type runOptions struct {
	date    string
	tickers []string
	remote  string
	apiKey  string
	timeout time.Duration
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch prices and revalue holdings for a date",
		Long: `run fetches closing prices for the held instruments (or --tickers) and then
revalues the latest earlier holdings snapshot into one for --date.

With --remote the run is triggered on a valora API server instead of the
local database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValuation(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "valuation date YYYY-MM-DD (default today, UTC)")
	cmd.Flags().StringSliceVar(&opts.tickers, "tickers", nil, "tickers to price (default: every held instrument)")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "base URL of a valora API server, e.g. http://localhost:8080")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", os.Getenv("PIPELINE_API_KEY"), "pipeline API key for --remote")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall run timeout")
	return cmd
}

func runValuation(cmd *cobra.Command, opts *runOptions) error {
	date, err := parseDate(opts.date)
	if err != nil {
		return err
	}
	tickers := splitFlag(opts.tickers)

	ctx, cancel := contextWithTimeout(cmd, opts.timeout)
	defer cancel()

	var result *services.PipelineResult
	if opts.remote != "" {
		client := pipelineclient.New(opts.remote, opts.apiKey, &http.Client{Timeout: opts.timeout})
		resp, err := client.RunValuation(ctx, date, tickers)
		if err != nil {
			return err
		}
		result = resp.Result
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
			return fmt.Errorf("valuation run answered %d: %s", resp.StatusCode, result.Summary)
		}
		return nil
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	result = e.svc.Pipeline.Run(ctx, date, tickers)
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.OverallSuccess {
		return fmt.Errorf("valuation run failed: %s", result.Summary)
	}
	return nil
}
