package services

import (
	"strings"
	"testing"
	"time"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
)

func TestRenderPostmortem(t *testing.T) {
	created := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.Local)
	resolved := created.Add(2 * time.Hour)

	tests := []struct {
		name     string
		inc      *incident.Incident
		contains []string
	}{
		{
			name: "resolved incident",
			inc: &incident.Incident{
				Title: "DB failover", Severity: "P1", Assignee: "aria",
				Status: incident.StatusResolved, CreatedAt: created, ResolvedAt: &resolved,
				Timeline: []incident.TimelineEvent{
					{Timestamp: created.Add(time.Minute), Event: "paged", Author: "system"},
				},
			},
			contains: []string{
				"# Incident Postmortem",
				"- **Severity:** P1",
				"- **Assignee:** aria",
				"- **Duration:** 2026-10-19T09:00:00.000000 to 2026-10-19T11:00:00.000000",
				"- **2026-10-19T09:01:00.000000** (system): paged",
				"<!-- Add root cause here -->",
			},
		},
		{
			name: "reopened incident keeps old resolution time",
			inc: &incident.Incident{
				Title: "DB failover", Severity: "P1", Assignee: "aria",
				Status: incident.StatusInvestigating, CreatedAt: created, ResolvedAt: &resolved,
			},
			contains: []string{
				"- **Duration:** 2026-10-19T09:00:00.000000 to ongoing",
			},
		},
		{
			name: "open incident without timeline",
			inc: &incident.Incident{
				Title: "Slow builds", Severity: "P4", Assignee: "alice", CreatedAt: created,
			},
			contains: []string{
				"- **Duration:** 2026-10-19T09:00:00.000000 to ongoing",
				"## Timeline\n\n## Root Cause Analysis",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := RenderPostmortem(tt.inc)
			for _, want := range tt.contains {
				if !strings.Contains(doc, want) {
					t.Errorf("RenderPostmortem() missing %q in:\n%s", want, doc)
				}
			}
		})
	}
}
