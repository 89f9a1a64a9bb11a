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

type ratesOptions struct {
	date    string
	pairs   []string
	remote  string
	apiKey  string
	timeout time.Duration
}

func newRatesCmd() *cobra.Command {
	opts := &ratesOptions{}
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Fetch and store exchange rates for a date",
		Long: `rates fetches --pairs (default: FX_PAIRS, or the pairs the latest holdings
snapshot needs) and replaces the stored rates of --date.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return refreshRates(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "rate date YYYY-MM-DD (default today, UTC)")
	cmd.Flags().StringSliceVar(&opts.pairs, "pairs", nil, "currency pairs such as GBP/USD")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "base URL of a valora API server")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", os.Getenv("PIPELINE_API_KEY"), "pipeline API key for --remote")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall timeout")
	return cmd
}

func refreshRates(cmd *cobra.Command, opts *ratesOptions) error {
	date, err := parseDate(opts.date)
	if err != nil {
		return err
	}
	raw := splitFlag(opts.pairs)
	pairs, err := services.ParseRatePairs(raw)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, opts.timeout)
	defer cancel()

	if opts.remote != "" {
		client := pipelineclient.New(opts.remote, opts.apiKey, &http.Client{Timeout: opts.timeout})
		result, err := client.RefreshRates(ctx, date, raw)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.svc.Rates.Refresh(ctx, date, pairs)
	if result != nil {
		if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	if result.TotalPairs > 0 && result.SuccessfulCount == 0 {
		return fmt.Errorf("no exchange rate fetched for %d pair(s)", result.TotalPairs)
	}
	return nil
}
