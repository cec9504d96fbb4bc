package incident

import (
	"time"

	"github.com/samber/lo"
)

// Status is where an incident sits in its lifecycle
type Status string

// Incident statuses. Any status may follow any other; new is the only
// initial status and resolved is set by Resolve or UpdateStatus.
const (
	StatusNew           Status = "new"
	StatusInvestigating Status = "investigating"
	StatusIdentified    Status = "identified"
	StatusMonitoring    Status = "monitoring"
	StatusResolved      Status = "resolved"
)

var statuses = []Status{StatusNew, StatusInvestigating, StatusIdentified, StatusMonitoring, StatusResolved}

// Statuses lists every status in lifecycle order
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// IsValid reports whether s is one of the five known statuses
func (s Status) IsValid() bool {
	return lo.Contains(statuses, s)
}

func (s Status) String() string { return string(s) }

// Severity levels callers are expected to use. Severity is stored
// verbatim; nothing below the CLI rejects other values.
const (
	SeverityP1 = "P1"
	SeverityP2 = "P2"
	SeverityP3 = "P3"
	SeverityP4 = "P4"
)

// Severities lists the documented severity levels, most urgent first
func Severities() []string {
	return []string{SeverityP1, SeverityP2, SeverityP3, SeverityP4}
}

// TimelineEvent is one annotation on an incident's timeline
type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Event     string    `json:"event" yaml:"event"`
	Author    string    `json:"author" yaml:"author"`
}

// Incident is a tracked operational problem
type Incident struct {
	ID         string          `json:"id" yaml:"id"`
	Title      string          `json:"title" yaml:"title"`
	Severity   string          `json:"severity" yaml:"severity"`
	Status     Status          `json:"status" yaml:"status"`
	Assignee   string          `json:"assignee" yaml:"assignee"`
	Services   []string        `json:"services" yaml:"services"`
	Timeline   []TimelineEvent `json:"timeline" yaml:"timeline"`
	CreatedAt  time.Time       `json:"created_at" yaml:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	Postmortem string          `json:"postmortem,omitempty" yaml:"postmortem,omitempty"`
}

// IsResolved reports whether the incident is closed out
func (i *Incident) IsResolved() bool {
	return i.Status == StatusResolved
}

// Alert is a raw monitoring signal folded into an incident. IncidentID is
// a plain reference; the alert does not own the incident.
type Alert struct {
	ID         string    `json:"id" yaml:"id"`
	Source     string    `json:"source" yaml:"source"`
	Message    string    `json:"message" yaml:"message"`
	Severity   string    `json:"severity" yaml:"severity"`
	FiredAt    time.Time `json:"fired_at" yaml:"fired_at"`
	IncidentID string    `json:"incident_id" yaml:"incident_id"`
}

// NewIncident carries the caller-supplied fields of CreateIncident
type NewIncident struct {
	Title    string   `json:"title" validate:"required"`
	Severity string   `json:"severity"`
	Services []string `json:"services"`
}

// Stats are point-in-time counts over the store
type Stats struct {
	ActiveBySeverity   map[string]int `json:"active_by_severity" yaml:"active_by_severity"`
	ResolvedBySeverity map[string]int `json:"resolved_by_severity" yaml:"resolved_by_severity"`
	CountByStatus      map[string]int `json:"count_by_status" yaml:"count_by_status"`
}
