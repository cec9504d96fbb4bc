package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
)

func newAlertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alert <source> <message> <severity>",
		Short: "Record an alert and open an incident for it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, message := args[0], args[1]
			severity := strings.ToUpper(args[2])
			if err := a.validator.ValidateVar(severity, severityTag); err != nil {
				return fmt.Errorf("invalid severity %q: expected one of %s", args[2], strings.Join(incident.Severities(), ", "))
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			inc, err := svc.AutoCreateFromAlert(cmd.Context(), source, message, severity)
			if err != nil {
				return fmt.Errorf("failed to create incident from alert: %w", err)
			}

			out := cmd.OutOrStdout()
			if format := a.getOutputFormat(); format != "table" {
				return printOutput(out, format, inc)
			}
			fmt.Fprintf(out, "Created: %s - %s (assigned to %s)\n", inc.ID, inc.Title, inc.Assignee)
			return nil
		},
	}
}
