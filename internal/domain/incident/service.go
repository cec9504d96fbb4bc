package incident

import "context"

// Service defines the interface for incident lifecycle logic.
//
// Not-found and invalid-status outcomes are reported as a false result,
// never as an error; errors are reserved for storage failures and bad
// creation input.
type Service interface {
	// CreateIncident opens a new incident assigned to whoever is on call
	CreateIncident(ctx context.Context, in NewIncident) (*Incident, error)

	// Assign hands an incident to someone else
	Assign(ctx context.Context, id, assignee string) (bool, error)

	// UpdateStatus moves an incident to status; false for an unknown id or status
	UpdateStatus(ctx context.Context, id string, status Status) (bool, error)

	// AddTimelineEvent appends a timestamped event to the timeline
	AddTimelineEvent(ctx context.Context, id, event, author string) (bool, error)

	// Resolve closes an incident and stamps its resolution time
	Resolve(ctx context.Context, id, notes string) (bool, error)

	// MeanTimeToResolve returns MTTR in minutes, optionally for one severity
	MeanTimeToResolve(ctx context.Context, severity string) (float64, error)

	// ActiveIncidents lists unresolved incidents, newest first
	ActiveIncidents(ctx context.Context) ([]*Incident, error)

	// Get retrieves an incident; found is false for an unknown id
	Get(ctx context.Context, id string) (inc *Incident, found bool, err error)

	// Alerts lists the alerts that produced an incident
	Alerts(ctx context.Context, id string) ([]*Alert, error)

	// AutoCreateFromAlert opens an incident for an alert and records the alert
	AutoCreateFromAlert(ctx context.Context, source, message, severity string) (*Incident, error)

	// GeneratePostmortem renders a markdown postmortem; "" for an unknown id
	GeneratePostmortem(ctx context.Context, id string) (string, error)

	// OnCall returns who is on call now
	OnCall() string

	// Stats returns counts for reporting
	Stats(ctx context.Context) (*Stats, error)
}
