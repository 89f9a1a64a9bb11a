package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"valora/internal/logger"
	"valora/internal/scheduler"
)

func newScheduleCmd() *cobra.Command {
	var spec string
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily valuation on a cron schedule until interrupted",
		Long: `schedule refreshes exchange rates and runs the valuation for the current
UTC day on --cron (default VALUATION_SCHEDULE). A run still in progress when
the next one is due is skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if spec == "" {
				spec = e.cfg.ValuationSchedule
			}
			if spec == "" {
				return fmt.Errorf("no schedule: pass --cron or set VALUATION_SCHEDULE")
			}

			ctx := commandContext(cmd)
			job := scheduler.NewValuationJob(e.svc.Pipeline, e.svc.Rates)
			s := scheduler.New()
			if err := s.AddJob(spec, job); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", spec, err)
			}
			if runNow {
				if err := s.RunNow(ctx, job); err != nil {
					logger.Named("schedule").Warnw("initial run failed", "error", err)
				}
			}
			s.Start()

			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.Stop(stopCtx)
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", `cron spec, e.g. "30 22 * * 1-5" or "@daily"`)
	cmd.Flags().BoolVar(&runNow, "now", false, "run once immediately before waiting for the schedule")
	return cmd
}
