package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
)

const severityTag = "oneof=P1 P2 P3 P4"

func newActiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List unresolved incidents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			incidents, err := svc.ActiveIncidents(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list active incidents: %w", err)
			}

			out := cmd.OutOrStdout()
			format := a.getOutputFormat()
			if format != "table" {
				return printOutput(out, format, incidents)
			}

			if len(incidents) == 0 {
				fmt.Fprintln(out, "No active incidents")
				return nil
			}

			width := titleWidth(out)
			t := NewTable(out, "ID", "SEVERITY", "STATUS", "ASSIGNEE", "CREATED", "TITLE")
			for _, inc := range incidents {
				t.AddRow(
					inc.ID,
					formatSeverity(inc.Severity),
					formatStatus(string(inc.Status)),
					inc.Assignee,
					formatTime(inc.CreatedAt),
					truncate(inc.Title, width),
				)
			}
			t.Render()
			return nil
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title> <severity> [services...]",
		Short: "Open a new incident assigned to whoever is on call",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			severity := strings.ToUpper(args[1])
			if err := a.validator.ValidateVar(severity, severityTag); err != nil {
				return fmt.Errorf("invalid severity %q: expected one of %s", args[1], strings.Join(incident.Severities(), ", "))
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			inc, err := svc.CreateIncident(cmd.Context(), incident.NewIncident{
				Title:    args[0],
				Severity: severity,
				Services: args[2:],
			})
			if err != nil {
				return fmt.Errorf("failed to create incident: %w", err)
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

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show incident details, timeline and alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			inc, ok, err := svc.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get incident: %w", err)
			}
			if !ok {
				fmt.Fprintln(out, "Not found")
				return nil
			}

			alerts, err := svc.Alerts(ctx, inc.ID)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if format := a.getOutputFormat(); format != "table" {
				return printOutput(out, format, struct {
					incident.Incident `yaml:",inline"`
					Alerts            []*incident.Alert `json:"alerts" yaml:"alerts"`
				}{*inc, alerts})
			}

			services := "-"
			if len(inc.Services) > 0 {
				services = strings.Join(inc.Services, ", ")
			}

			fmt.Fprintf(out, "ID:        %s\n", inc.ID)
			fmt.Fprintf(out, "Title:     %s\n", inc.Title)
			fmt.Fprintf(out, "Severity:  %s\n", formatSeverity(inc.Severity))
			fmt.Fprintf(out, "Status:    %s\n", inc.Status)
			fmt.Fprintf(out, "Assignee:  %s\n", inc.Assignee)
			fmt.Fprintf(out, "Services:  %s\n", services)
			fmt.Fprintf(out, "Created:   %s\n", formatTime(inc.CreatedAt))
			if inc.IsResolved() {
				fmt.Fprintf(out, "Resolved:  %s\n", formatOptionalTime(inc.ResolvedAt))
			}

			if len(inc.Timeline) > 0 {
				fmt.Fprintln(out, "\nTimeline:")
				t := NewTable(out, "TIME", "AUTHOR", "EVENT")
				for _, ev := range inc.Timeline {
					t.AddRow(formatTime(ev.Timestamp), ev.Author, ev.Event)
				}
				t.Render()
			}

			if len(alerts) > 0 {
				fmt.Fprintln(out, "\nAlerts:")
				t := NewTable(out, "ID", "SOURCE", "SEVERITY", "FIRED", "MESSAGE")
				for _, al := range alerts {
					t.AddRow(al.ID, al.Source, formatSeverity(al.Severity), formatTime(al.FiredAt), al.Message)
				}
				t.Render()
			}
			return nil
		},
	}
}

func newAssignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <person>",
		Short: "Reassign an incident",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			ok, err := svc.Assign(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to assign incident: %w", err)
			}

			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "Not found")
				return nil
			}
			fmt.Fprintf(out, "Assigned: %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			ok, err := svc.Resolve(cmd.Context(), args[0], notes)
			if err != nil {
				return fmt.Errorf("failed to resolve incident: %w", err)
			}

			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "Not found")
				return nil
			}
			fmt.Fprintf(out, "Resolved: %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "resolution notes")

	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	statuses := make([]string, 0, len(incident.Statuses()))
	for _, s := range incident.Statuses() {
		statuses = append(statuses, string(s))
	}

	return &cobra.Command{
		Use:       "status <id> <new_status>",
		Short:     "Move an incident to another status",
		Long:      "Move an incident to any of: " + strings.Join(statuses, ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: statuses,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			ok, err := svc.UpdateStatus(cmd.Context(), args[0], incident.Status(args[1]))
			if err != nil {
				return fmt.Errorf("failed to update status: %w", err)
			}

			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "Not found or invalid status")
				return nil
			}
			fmt.Fprintf(out, "Updated: %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func newTimelineCmd(a *app) *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "timeline <id> <event>",
		Short: "Add an event to an incident's timeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			ok, err := svc.AddTimelineEvent(cmd.Context(), args[0], args[1], author)
			if err != nil {
				return fmt.Errorf("failed to add timeline event: %w", err)
			}

			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "Not found")
				return nil
			}
			fmt.Fprintf(out, "Added event to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "system", "event author")

	return cmd
}

func newPostmortemCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "postmortem <id>",
		Short: "Print a markdown postmortem template for an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			doc, err := svc.GeneratePostmortem(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to generate postmortem: %w", err)
			}

			out := cmd.OutOrStdout()
			if doc == "" {
				fmt.Fprintln(out, "Not found")
				return nil
			}
			fmt.Fprint(out, doc)
			return nil
		},
	}
}
