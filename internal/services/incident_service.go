package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
	"github.com/pratik-mahalle/incidents/internal/domain/oncall"
	"github.com/pratik-mahalle/incidents/internal/pkg/errors"
	"github.com/pratik-mahalle/incidents/internal/pkg/logger"
	"github.com/pratik-mahalle/incidents/internal/pkg/validator"
)

// IncidentService implements incident.Service
type IncidentService struct {
	store     incident.Store
	rotation  *oncall.Rotation
	logger    *logger.Logger
	validator *validator.Validator
	now       func() time.Time
	newID     func() string
}

// Option configures an IncidentService
type Option func(*IncidentService)

// WithClock replaces time.Now for timestamps written by the service
func WithClock(now func() time.Time) Option {
	return func(s *IncidentService) { s.now = now }
}

// WithIDGenerator replaces the short random id generator
func WithIDGenerator(newID func() string) Option {
	return func(s *IncidentService) { s.newID = newID }
}

// NewIncidentService creates a new incident service
func NewIncidentService(store incident.Store, rotation *oncall.Rotation, log *logger.Logger, opts ...Option) incident.Service {
	s := &IncidentService{
		store:     store,
		rotation:  rotation,
		logger:    log,
		validator: validator.New(),
		now:       time.Now,
		newID:     shortID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// shortID returns the first eight hex digits of a random UUID
func shortID() string {
	return uuid.NewString()[:8]
}

// CreateIncident opens a new incident assigned to whoever is on call
func (s *IncidentService) CreateIncident(ctx context.Context, in incident.NewIncident) (*incident.Incident, error) {
	return s.createIncident(ctx, s.store, in)
}

func (s *IncidentService) createIncident(ctx context.Context, repo incident.Repository, in incident.NewIncident) (*incident.Incident, error) {
	if errs := s.validator.Validate(in); len(errs) > 0 {
		return nil, errors.ValidationError("Invalid incident", errs)
	}

	services := append([]string{}, in.Services...)
	inc := &incident.Incident{
		ID:        s.newID(),
		Title:     in.Title,
		Severity:  in.Severity,
		Status:    incident.StatusNew,
		Assignee:  s.rotation.Current(),
		Services:  services,
		Timeline:  []incident.TimelineEvent{},
		CreatedAt: s.now(),
	}

	if err := repo.InsertIncident(ctx, inc); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create incident")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"incident_id": inc.ID,
		"severity":    inc.Severity,
		"assignee":    inc.Assignee,
	}).Info("Incident created")

	return inc, nil
}

// Assign hands an incident to someone else. The assignee is not checked
// against the roster.
func (s *IncidentService) Assign(ctx context.Context, id, assignee string) (bool, error) {
	ok, err := s.store.UpdateAssignee(ctx, id, assignee)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to assign incident")
		return false, err
	}
	if ok {
		s.logger.WithFields(map[string]interface{}{
			"incident_id": id,
			"assignee":    assignee,
		}).Info("Incident assigned")
	}
	return ok, nil
}

// UpdateStatus moves an incident to any of the known statuses. There is no
// transition graph: any status may follow any other.
func (s *IncidentService) UpdateStatus(ctx context.Context, id string, status incident.Status) (bool, error) {
	if !status.IsValid() {
		s.logger.With("status", status).Debug("Rejected unknown status")
		return false, nil
	}

	ok, err := s.store.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to update incident status")
		return false, err
	}
	if ok {
		s.logger.WithFields(map[string]interface{}{
			"incident_id": id,
			"status":      status,
		}).Info("Incident status updated")
	}
	return ok, nil
}

// AddTimelineEvent appends to the timeline. The read and the write share
// one transaction, so concurrent appends cannot drop each other.
func (s *IncidentService) AddTimelineEvent(ctx context.Context, id, event, author string) (bool, error) {
	var found bool
	err := s.store.RunInTx(ctx, func(ctx context.Context, repo incident.Repository) error {
		inc, ok, err := repo.FetchByID(ctx, id)
		if err != nil || !ok {
			return err
		}
		timeline := append(inc.Timeline, incident.TimelineEvent{
			Timestamp: s.now(),
			Event:     event,
			Author:    author,
		})
		found, err = repo.UpdateTimeline(ctx, id, timeline)
		return err
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to add timeline event")
		return false, err
	}
	if found {
		s.logger.WithFields(map[string]interface{}{
			"incident_id": id,
			"author":      author,
		}).Debug("Timeline event added")
	}
	return found, nil
}

// Resolve closes an incident whatever its current status, re-stamping
// resolved_at if it was already resolved. Notes are logged, not stored.
func (s *IncidentService) Resolve(ctx context.Context, id, notes string) (bool, error) {
	ok, err := s.store.Resolve(ctx, id, s.now())
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to resolve incident")
		return false, err
	}
	if ok {
		fields := map[string]interface{}{"incident_id": id}
		if notes = strings.TrimSpace(notes); notes != "" {
			fields["notes"] = notes
		}
		s.logger.WithFields(fields).Info("Incident resolved")
	}
	return ok, nil
}

// MeanTimeToResolve returns MTTR in minutes; "" means every severity
func (s *IncidentService) MeanTimeToResolve(ctx context.Context, severity string) (float64, error) {
	return s.store.AverageResolutionMinutes(ctx, severity)
}

// ActiveIncidents lists unresolved incidents, newest first
func (s *IncidentService) ActiveIncidents(ctx context.Context) ([]*incident.Incident, error) {
	return s.store.FetchActive(ctx)
}

// Get retrieves an incident by id
func (s *IncidentService) Get(ctx context.Context, id string) (*incident.Incident, bool, error) {
	return s.store.FetchByID(ctx, id)
}

// Alerts lists the alerts folded into an incident
func (s *IncidentService) Alerts(ctx context.Context, id string) ([]*incident.Alert, error) {
	return s.store.ListAlerts(ctx, id)
}

// AutoCreateFromAlert opens an incident titled after the alert and records
// the alert against it, both in one transaction.
func (s *IncidentService) AutoCreateFromAlert(ctx context.Context, source, message, severity string) (*incident.Incident, error) {
	var created *incident.Incident
	err := s.store.RunInTx(ctx, func(ctx context.Context, repo incident.Repository) error {
		inc, err := s.createIncident(ctx, repo, incident.NewIncident{
			Title:    "Alert: " + message,
			Severity: severity,
		})
		if err != nil {
			return err
		}

		a := &incident.Alert{
			ID:         s.newID(),
			Source:     source,
			Message:    message,
			Severity:   severity,
			FiredAt:    s.now(),
			IncidentID: inc.ID,
		}
		if err := repo.InsertAlert(ctx, a); err != nil {
			return err
		}
		created = inc
		return nil
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to create incident from alert")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"incident_id": created.ID,
		"source":      source,
	}).Info("Incident created from alert")

	return created, nil
}

// GeneratePostmortem renders a postmortem document. It is not written
// back to the incident.
func (s *IncidentService) GeneratePostmortem(ctx context.Context, id string) (string, error) {
	inc, ok, err := s.store.FetchByID(ctx, id)
	if err != nil || !ok {
		return "", err
	}
	return RenderPostmortem(inc), nil
}

// OnCall returns who is on call now
func (s *IncidentService) OnCall() string {
	return s.rotation.Current()
}

// Stats returns incident counts for reporting
func (s *IncidentService) Stats(ctx context.Context) (*incident.Stats, error) {
	return s.store.Stats(ctx)
}
