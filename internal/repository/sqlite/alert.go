package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
	"github.com/pratik-mahalle/incidents/internal/pkg/errors"
)

func (r *IncidentRepository) InsertAlert(ctx context.Context, a *incident.Alert) error {
	query := `
		INSERT INTO alerts (id, source, message, severity, fired_at, incident_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	var incidentID any
	if a.IncidentID != "" {
		incidentID = a.IncidentID
	}

	_, err := r.q.ExecContext(ctx, query,
		a.ID, a.Source, a.Message, a.Severity, formatTime(a.FiredAt), incidentID,
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return errors.StorageError(fmt.Sprintf("Alert %s already exists", a.ID), err)
		}
		return errors.StorageError("Failed to insert alert", err)
	}
	return nil
}

func (r *IncidentRepository) ListAlerts(ctx context.Context, incidentID string) ([]*incident.Alert, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, source, message, severity, fired_at, incident_id
		FROM alerts WHERE incident_id = ?
		ORDER BY fired_at, rowid
	`, incidentID)
	if err != nil {
		return nil, errors.StorageError("Failed to list alerts", err)
	}
	defer rows.Close()

	alerts := make([]*incident.Alert, 0)
	for rows.Next() {
		var a incident.Alert
		var source, message, severity, incID sql.NullString
		var firedAt string
		if err := rows.Scan(&a.ID, &source, &message, &severity, &firedAt, &incID); err != nil {
			return nil, errors.StorageError("Failed to scan alert", err)
		}
		a.Source, a.Message, a.Severity, a.IncidentID = source.String, message.String, severity.String, incID.String
		if a.FiredAt, err = parseTime(firedAt); err != nil {
			return nil, errors.StorageError(fmt.Sprintf("Malformed fired_at on alert %s", a.ID), err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("Failed to list alerts", err)
	}
	return alerts, nil
}
