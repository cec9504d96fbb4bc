package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/incidents/internal/pkg/metrics"
)

func newMTTRCmd(a *app) *cobra.Command {
	var severity string

	cmd := &cobra.Command{
		Use:   "mttr",
		Short: "Show mean time to resolve in minutes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			severity = strings.ToUpper(severity)
			mttr, err := svc.MeanTimeToResolve(cmd.Context(), severity)
			if err != nil {
				return fmt.Errorf("failed to compute MTTR: %w", err)
			}

			out := cmd.OutOrStdout()
			if format := a.getOutputFormat(); format != "table" {
				return printOutput(out, format, map[string]interface{}{
					"severity":     severity,
					"mttr_minutes": mttr,
				})
			}
			fmt.Fprintf(out, "MTTR: %.2f minutes\n", mttr)
			return nil
		},
	}

	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")

	return cmd
}

func newOnCallCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "oncall",
		Short: "Show who is on call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			format := a.getOutputFormat()

			if days <= 0 {
				current := a.rotation.Current()
				if format != "table" {
					return printOutput(out, format, map[string]string{"oncall": current})
				}
				fmt.Fprintf(out, "On-call: %s\n", current)
				return nil
			}

			shifts := a.rotation.Upcoming(days)
			if format != "table" {
				return printOutput(out, format, shifts)
			}

			t := NewTable(out, "START", "END", "ASSIGNEE")
			for _, s := range shifts {
				t.AddRow(formatTime(s.Start), formatTime(s.End), s.Assignee)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "also list this many upcoming shifts")

	return cmd
}

func newMetricsCmd(a *app) *cobra.Command {
	var textfile string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Export incident gauges for the node_exporter textfile collector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			rec := metrics.NewRecorder()
			if err := rec.Collect(cmd.Context(), svc); err != nil {
				return err
			}
			if err := rec.WriteTextfile(textfile); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}

			a.logger.With("path", textfile).Debug("Metrics written")
			fmt.Fprintf(cmd.OutOrStdout(), "Metrics written to %s\n", textfile)
			return nil
		},
	}

	cmd.Flags().StringVar(&textfile, "textfile", "", "path of the .prom file to write")
	_ = cmd.MarkFlagRequired("textfile")

	return cmd
}
