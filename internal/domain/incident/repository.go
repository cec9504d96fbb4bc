package incident

import (
	"context"
	"time"
)

// Repository defines the interface for incident and alert data access.
// Update methods report false when no incident has the given id.
type Repository interface {
	// InsertIncident persists a full incident row
	InsertIncident(ctx context.Context, inc *Incident) error

	// InsertAlert persists a full alert row
	InsertAlert(ctx context.Context, a *Alert) error

	// UpdateAssignee reassigns an incident
	UpdateAssignee(ctx context.Context, id, assignee string) (bool, error)

	// UpdateStatus sets the status. Moving to resolved stamps resolved_at
	// with changedAt unless already set; any other status clears it.
	UpdateStatus(ctx context.Context, id string, status Status, changedAt time.Time) (bool, error)

	// UpdateTimeline overwrites the whole stored timeline
	UpdateTimeline(ctx context.Context, id string, timeline []TimelineEvent) (bool, error)

	// Resolve sets status resolved and stamps resolvedAt, whatever the current status
	Resolve(ctx context.Context, id string, resolvedAt time.Time) (bool, error)

	// FetchByID retrieves an incident; found is false for an unknown id
	FetchByID(ctx context.Context, id string) (inc *Incident, found bool, err error)

	// FetchActive lists unresolved incidents, newest first
	FetchActive(ctx context.Context) ([]*Incident, error)

	// AverageResolutionMinutes is the mean created->resolved time of resolved
	// incidents, optionally for one severity ("" for all). Zero when none match.
	AverageResolutionMinutes(ctx context.Context, severity string) (float64, error)

	// ListAlerts lists the alerts folded into an incident, oldest first
	ListAlerts(ctx context.Context, incidentID string) ([]*Alert, error)

	// Stats counts incidents by status and severity
	Stats(ctx context.Context) (*Stats, error)
}

// TxRunner runs fn against a Repository bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Store is a Repository that can also group operations atomically
type Store interface {
	Repository
	TxRunner
}
