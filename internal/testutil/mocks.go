package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
)

// MockIncidentRepository is an in-memory implementation of incident.Store
type MockIncidentRepository struct {
	mu        sync.Mutex
	Incidents map[string]*incident.Incident
	Alerts    map[string]*incident.Alert
	order     []string

	InsertError error
	UpdateError error
	GetError    error
	AlertError  error

	// Calls counts every repository method invocation by name
	Calls map[string]int
}

func NewMockIncidentRepository() *MockIncidentRepository {
	return &MockIncidentRepository{
		Incidents: make(map[string]*incident.Incident),
		Alerts:    make(map[string]*incident.Alert),
		Calls:     make(map[string]int),
	}
}

func (m *MockIncidentRepository) record(name string) {
	m.Calls[name]++
}

// RunInTx runs fn directly; the mock has no rollback.
func (m *MockIncidentRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, repo incident.Repository) error) error {
	m.mu.Lock()
	m.record("RunInTx")
	m.mu.Unlock()
	return fn(ctx, m)
}

func (m *MockIncidentRepository) InsertIncident(ctx context.Context, inc *incident.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("InsertIncident")
	if m.InsertError != nil {
		return m.InsertError
	}
	if _, ok := m.Incidents[inc.ID]; ok {
		return fmt.Errorf("incident %s already exists", inc.ID)
	}
	m.Incidents[inc.ID] = cloneIncident(inc)
	m.order = append(m.order, inc.ID)
	return nil
}

func (m *MockIncidentRepository) InsertAlert(ctx context.Context, a *incident.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("InsertAlert")
	if m.AlertError != nil {
		return m.AlertError
	}
	cp := *a
	m.Alerts[a.ID] = &cp
	return nil
}

func (m *MockIncidentRepository) update(name, id string, fn func(inc *incident.Incident)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(name)
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	inc, ok := m.Incidents[id]
	if !ok {
		return false, nil
	}
	fn(inc)
	return true, nil
}

func (m *MockIncidentRepository) UpdateAssignee(ctx context.Context, id, assignee string) (bool, error) {
	return m.update("UpdateAssignee", id, func(inc *incident.Incident) { inc.Assignee = assignee })
}

func (m *MockIncidentRepository) UpdateStatus(ctx context.Context, id string, status incident.Status, changedAt time.Time) (bool, error) {
	return m.update("UpdateStatus", id, func(inc *incident.Incident) {
		inc.Status = status
		switch {
		case status != incident.StatusResolved:
			inc.ResolvedAt = nil
		case inc.ResolvedAt == nil:
			ts := changedAt
			inc.ResolvedAt = &ts
		}
	})
}

func (m *MockIncidentRepository) UpdateTimeline(ctx context.Context, id string, timeline []incident.TimelineEvent) (bool, error) {
	return m.update("UpdateTimeline", id, func(inc *incident.Incident) {
		inc.Timeline = append([]incident.TimelineEvent(nil), timeline...)
	})
}

func (m *MockIncidentRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time) (bool, error) {
	return m.update("Resolve", id, func(inc *incident.Incident) {
		ts := resolvedAt
		inc.Status = incident.StatusResolved
		inc.ResolvedAt = &ts
	})
}

func (m *MockIncidentRepository) FetchByID(ctx context.Context, id string) (*incident.Incident, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FetchByID")
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	inc, ok := m.Incidents[id]
	if !ok {
		return nil, false, nil
	}
	return cloneIncident(inc), true, nil
}

func (m *MockIncidentRepository) FetchActive(ctx context.Context) ([]*incident.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FetchActive")
	if m.GetError != nil {
		return nil, m.GetError
	}
	var out []*incident.Incident
	for i := len(m.order) - 1; i >= 0; i-- {
		inc := m.Incidents[m.order[i]]
		if inc.Status != incident.StatusResolved {
			out = append(out, cloneIncident(inc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockIncidentRepository) AverageResolutionMinutes(ctx context.Context, severity string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AverageResolutionMinutes")
	if m.GetError != nil {
		return 0, m.GetError
	}
	var total float64
	var n int
	for _, inc := range m.Incidents {
		if inc.Status != incident.StatusResolved || inc.ResolvedAt == nil {
			continue
		}
		if severity != "" && inc.Severity != severity {
			continue
		}
		total += inc.ResolvedAt.Sub(inc.CreatedAt).Minutes()
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return total / float64(n), nil
}

func (m *MockIncidentRepository) ListAlerts(ctx context.Context, incidentID string) ([]*incident.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListAlerts")
	var out []*incident.Alert
	for _, a := range m.Alerts {
		if a.IncidentID == incidentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.Before(out[j].FiredAt) })
	return out, nil
}

func (m *MockIncidentRepository) Stats(ctx context.Context) (*incident.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Stats")
	stats := &incident.Stats{
		ActiveBySeverity:   make(map[string]int),
		ResolvedBySeverity: make(map[string]int),
		CountByStatus:      make(map[string]int),
	}
	for _, inc := range m.Incidents {
		stats.CountByStatus[string(inc.Status)]++
		if inc.Status == incident.StatusResolved {
			stats.ResolvedBySeverity[inc.Severity]++
		} else {
			stats.ActiveBySeverity[inc.Severity]++
		}
	}
	return stats, nil
}

func cloneIncident(inc *incident.Incident) *incident.Incident {
	cp := *inc
	cp.Services = append([]string(nil), inc.Services...)
	cp.Timeline = append([]incident.TimelineEvent(nil), inc.Timeline...)
	if inc.ResolvedAt != nil {
		ts := *inc.ResolvedAt
		cp.ResolvedAt = &ts
	}
	return &cp
}
