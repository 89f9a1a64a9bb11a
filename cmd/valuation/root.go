package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"valora/internal/app"
	"valora/internal/config"
	"valora/internal/database"
	"valora/internal/models"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "valuation",
		Short: "Daily valuation pipeline: prices, exchange rates and holdings snapshots",
		Long: `valuation fetches closing prices and exchange rates for a date and rolls
the latest holdings snapshot forward to it.

Database and provider settings come from the environment (or a .env file),
the same variables the API server reads.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newRunCmd(),
		newRatesCmd(),
		newSeedCmd(),
		newScheduleCmd(),
	)
	return cmd
}

// env is the local stack a command runs against.
type env struct {
	cfg *config.Config
	db  *database.Manager
	svc *app.Services
}

func (e *env) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
}

// openEnv loads configuration, migrates the database and builds the services.
func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := app.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	clients, err := app.NewClients(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	svc, err := app.NewServices(db.DB(), cfg, clients)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &env{cfg: cfg, db: db, svc: svc}, nil
}

// parseDate parses --date; empty means today (UTC).
func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return models.Day(time.Now().UTC()), nil
	}
	d, err := models.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// splitFlag splits a comma separated flag value, dropping blanks.
func splitFlag(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// commandContext is cancelled with the command's context (Ctrl-C via Execute).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func contextWithTimeout(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(commandContext(cmd))
	}
	return context.WithTimeout(commandContext(cmd), timeout)
}
