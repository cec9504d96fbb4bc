package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
	"github.com/pratik-mahalle/incidents/internal/pkg/errors"
)

func TestIncidentRepository_Alerts(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))
	require.NoError(t, repo.InsertIncident(ctx, newIncident("inc00001", t0)))

	alerts := []*incident.Alert{
		{ID: "al000002", Source: "grafana", Message: "p99 high", Severity: "P2", FiredAt: t0.Add(2 * time.Minute), IncidentID: "inc00001"},
		{ID: "al000001", Source: "pagerduty", Message: "5xx", Severity: "P1", FiredAt: t0.Add(time.Minute), IncidentID: "inc00001"},
		{ID: "al000003", Source: "cron", Message: "unlinked", Severity: "P4", FiredAt: t0},
	}
	for _, a := range alerts {
		require.NoError(t, repo.InsertAlert(ctx, a))
	}

	got, err := repo.ListAlerts(ctx, "inc00001")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "al000001", got[0].ID)
	assert.Equal(t, "al000002", got[1].ID)
	assert.Equal(t, "pagerduty", got[0].Source)
	assert.True(t, got[0].FiredAt.Equal(t0.Add(time.Minute)))

	none, err := repo.ListAlerts(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIncidentRepository_AlertForeignKey(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))

	err := repo.InsertAlert(ctx, &incident.Alert{ID: "orphan01", FiredAt: t0, IncidentID: "does-not-exist"})
	require.Error(t, err)
	assert.True(t, errors.IsStorage(err))
}
