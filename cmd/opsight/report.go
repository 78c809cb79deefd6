package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/savegress/opsight/internal/analytics"
	"github.com/savegress/opsight/pkg/models"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print analytics reports as JSON",
	}
	cmd.AddCommand(machineReportCmd())
	return cmd
}

func parseFlagDate(value string, end bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected RFC3339 or YYYY-MM-DD", value)
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func machineReportCmd() *cobra.Command {
	var (
		start, end string
		benchmarks bool
	)
	cmd := &cobra.Command{
		Use:   "machine <id>",
		Short: "Print the OEE report for a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			var r models.DateRange
			if r.Start, err = parseFlagDate(start, false); err != nil {
				return err
			}
			if r.End, err = parseFlagDate(end, true); err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			svc, err := analytics.NewService(st, cfg.Analytics, analytics.Options{Logger: logger})
			if err != nil {
				return err
			}
			defer svc.Stop()

			report, err := svc.ComputeOEE(ctx, models.EntityMachine, args[0], r, benchmarks)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "window start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "window end, inclusive")
	cmd.Flags().BoolVar(&benchmarks, "benchmarks", false, "include industry benchmarks")
	return cmd
}
