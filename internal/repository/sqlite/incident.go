package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
	"github.com/pratik-mahalle/incidents/internal/pkg/errors"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type IncidentRepository struct {
	db *sql.DB // nil when bound to a transaction
	q  querier
}

func NewIncidentRepository(db *sql.DB) incident.Store {
	return &IncidentRepository{db: db, q: db}
}

const incidentColumns = `id, title, severity, status, assignee, services, timeline, created_at, resolved_at, postmortem`

// RunInTx runs fn inside one transaction. Calls made on an already
// transactional repository join the outer transaction.
func (r *IncidentRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, repo incident.Repository) error) error {
	if r.db == nil {
		return fn(ctx, r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StorageError("Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &IncidentRepository{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.StorageError("Failed to commit transaction", err)
	}
	return nil
}

func (r *IncidentRepository) InsertIncident(ctx context.Context, inc *incident.Incident) error {
	services, err := encodeServices(inc.Services)
	if err != nil {
		return errors.StorageError("Failed to encode services", err)
	}
	timeline, err := encodeTimeline(inc.Timeline)
	if err != nil {
		return errors.StorageError("Failed to encode timeline", err)
	}

	query := `
		INSERT INTO incidents (` + incidentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.q.ExecContext(ctx, query,
		inc.ID, inc.Title, inc.Severity, string(inc.Status), inc.Assignee,
		services, timeline, formatTime(inc.CreatedAt), nullableTime(inc.ResolvedAt), inc.Postmortem,
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return errors.StorageError(fmt.Sprintf("Incident %s already exists", inc.ID), err)
		}
		return errors.StorageError("Failed to insert incident", err)
	}
	return nil
}

func (r *IncidentRepository) UpdateAssignee(ctx context.Context, id, assignee string) (bool, error) {
	return r.execUpdate(ctx, "Failed to update assignee",
		`UPDATE incidents SET assignee = ? WHERE id = ?`, assignee, id)
}

// UpdateStatus keeps resolved_at in step with the status: moving to
// resolved stamps it if unset, moving anywhere else clears it.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id string, status incident.Status, changedAt time.Time) (bool, error) {
	return r.execUpdate(ctx, "Failed to update status", `
		UPDATE incidents
		SET status = ?,
		    resolved_at = CASE WHEN ? = 'resolved' THEN COALESCE(resolved_at, ?) ELSE NULL END
		WHERE id = ?
	`, string(status), string(status), formatTime(changedAt), id)
}

func (r *IncidentRepository) UpdateTimeline(ctx context.Context, id string, timeline []incident.TimelineEvent) (bool, error) {
	encoded, err := encodeTimeline(timeline)
	if err != nil {
		return false, errors.StorageError("Failed to encode timeline", err)
	}
	return r.execUpdate(ctx, "Failed to update timeline",
		`UPDATE incidents SET timeline = ? WHERE id = ?`, encoded, id)
}

func (r *IncidentRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time) (bool, error) {
	return r.execUpdate(ctx, "Failed to resolve incident",
		`UPDATE incidents SET status = ?, resolved_at = ? WHERE id = ?`,
		string(incident.StatusResolved), formatTime(resolvedAt), id)
}

func (r *IncidentRepository) FetchByID(ctx context.Context, id string) (*incident.Incident, bool, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = ?`, id)
	inc, err := scanIncident(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return inc, true, nil
}

func (r *IncidentRepository) FetchActive(ctx context.Context) ([]*incident.Incident, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+incidentColumns+`
		FROM incidents WHERE status != ?
		ORDER BY created_at DESC, rowid DESC
	`, string(incident.StatusResolved))
	if err != nil {
		return nil, errors.StorageError("Failed to list active incidents", err)
	}
	defer rows.Close()

	incidents := make([]*incident.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("Failed to list active incidents", err)
	}
	return incidents, nil
}

func (r *IncidentRepository) AverageResolutionMinutes(ctx context.Context, severity string) (float64, error) {
	query := `SELECT created_at, resolved_at FROM incidents WHERE status = ? AND resolved_at IS NOT NULL`
	args := []any{string(incident.StatusResolved)}
	if severity != "" {
		query += ` AND severity = ?`
		args = append(args, severity)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, errors.StorageError("Failed to query resolution times", err)
	}
	defer rows.Close()

	var total float64
	var count int
	for rows.Next() {
		var createdRaw, resolvedRaw string
		if err := rows.Scan(&createdRaw, &resolvedRaw); err != nil {
			return 0, errors.StorageError("Failed to scan resolution times", err)
		}
		created, err := parseTime(createdRaw)
		if err != nil {
			return 0, errors.StorageError("Malformed created_at", err)
		}
		resolved, err := parseTime(resolvedRaw)
		if err != nil {
			return 0, errors.StorageError("Malformed resolved_at", err)
		}
		total += resolved.Sub(created).Minutes()
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, errors.StorageError("Failed to query resolution times", err)
	}

	if count == 0 {
		return 0, nil
	}
	return total / float64(count), nil
}

func (r *IncidentRepository) Stats(ctx context.Context) (*incident.Stats, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT status, COALESCE(severity, ''), COUNT(*)
		FROM incidents GROUP BY status, severity
	`)
	if err != nil {
		return nil, errors.StorageError("Failed to count incidents", err)
	}
	defer rows.Close()

	stats := &incident.Stats{
		ActiveBySeverity:   make(map[string]int),
		ResolvedBySeverity: make(map[string]int),
		CountByStatus:      make(map[string]int),
	}
	for rows.Next() {
		var status, severity string
		var count int
		if err := rows.Scan(&status, &severity, &count); err != nil {
			return nil, errors.StorageError("Failed to scan count", err)
		}
		stats.CountByStatus[status] += count
		if incident.Status(status) == incident.StatusResolved {
			stats.ResolvedBySeverity[severity] += count
		} else {
			stats.ActiveBySeverity[severity] += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("Failed to count incidents", err)
	}
	return stats, nil
}

func (r *IncidentRepository) execUpdate(ctx context.Context, msg, query string, args ...any) (bool, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.StorageError(msg, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.StorageError("Failed to get affected rows", err)
	}
	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(s rowScanner) (*incident.Incident, error) {
	var (
		inc                    incident.Incident
		status, createdAt      string
		severity, assignee     sql.NullString
		services, timeline     sql.NullString
		resolvedAt, postmortem sql.NullString
	)
	err := s.Scan(&inc.ID, &inc.Title, &severity, &status, &assignee,
		&services, &timeline, &createdAt, &resolvedAt, &postmortem)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.StorageError("Failed to scan incident", err)
	}

	inc.Severity = severity.String
	inc.Status = incident.Status(status)
	inc.Assignee = assignee.String
	inc.Postmortem = postmortem.String

	if inc.Services, err = decodeServices(services); err != nil {
		return nil, errors.StorageError(fmt.Sprintf("Malformed services on incident %s", inc.ID), err)
	}
	if inc.Timeline, err = decodeTimeline(timeline); err != nil {
		return nil, errors.StorageError(fmt.Sprintf("Malformed timeline on incident %s", inc.ID), err)
	}
	if inc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, errors.StorageError(fmt.Sprintf("Malformed created_at on incident %s", inc.ID), err)
	}
	if resolvedAt.Valid && resolvedAt.String != "" {
		ts, err := parseTime(resolvedAt.String)
		if err != nil {
			return nil, errors.StorageError(fmt.Sprintf("Malformed resolved_at on incident %s", inc.ID), err)
		}
		inc.ResolvedAt = &ts
	}
	return &inc, nil
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
