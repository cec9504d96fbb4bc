package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/incidents/internal/config"
	"github.com/pratik-mahalle/incidents/internal/domain/incident"
	"github.com/pratik-mahalle/incidents/internal/pkg/errors"
)

var t0 = time.Date(2026, time.October, 19, 8, 0, 0, 0, time.Local)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "nested", "dir", "incidents.db"),
		BusyTimeout: time.Second,
	}
	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newIncident(id string, createdAt time.Time) *incident.Incident {
	return &incident.Incident{
		ID:        id,
		Title:     "incident " + id,
		Severity:  incident.SeverityP2,
		Status:    incident.StatusNew,
		Assignee:  "alexa",
		Services:  []string{"api"},
		Timeline:  []incident.TimelineEvent{},
		CreatedAt: createdAt,
	}
}

func TestOpen_CreatesDirectoryAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a", "b", "incidents.db")
	cfg := config.DatabaseConfig{Path: path, BusyTimeout: time.Second}

	db, err := Open(ctx, cfg)
	require.NoError(t, err)
	repo := NewIncidentRepository(db)
	require.NoError(t, repo.InsertIncident(ctx, newIncident("keep0001", t0)))

	require.NoError(t, InitSchema(ctx, db))
	require.NoError(t, db.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	db, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	_, found, err := NewIncidentRepository(db).FetchByID(ctx, "keep0001")
	require.NoError(t, err)
	assert.True(t, found, "reopening must not drop existing rows")

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)
}

func TestIncidentRepository_InsertAndFetch(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))

	inc := newIncident("abc12345", t0.Add(123456*time.Microsecond))
	inc.Services = []string{"api", "db"}
	require.NoError(t, repo.InsertIncident(ctx, inc))

	got, found, err := repo.FetchByID(ctx, inc.ID)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, inc.Title, got.Title)
	assert.Equal(t, inc.Severity, got.Severity)
	assert.Equal(t, incident.StatusNew, got.Status)
	assert.Equal(t, []string{"api", "db"}, got.Services)
	assert.Empty(t, got.Timeline)
	assert.True(t, inc.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, inc.CreatedAt)
	assert.Nil(t, got.ResolvedAt)

	_, found, err = repo.FetchByID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIncidentRepository_InsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))

	require.NoError(t, repo.InsertIncident(ctx, newIncident("dup00001", t0)))
	err := repo.InsertIncident(ctx, newIncident("dup00001", t0))
	require.Error(t, err)
	assert.True(t, errors.IsStorage(err), "got %v", err)
}

func TestIncidentRepository_UpdatesOnUnknownID(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))

	tests := []struct {
		name string
		fn   func() (bool, error)
	}{
		{"assignee", func() (bool, error) { return repo.UpdateAssignee(ctx, "nope", "alice") }},
		{"status", func() (bool, error) { return repo.UpdateStatus(ctx, "nope", incident.StatusIdentified, t0) }},
		{"timeline", func() (bool, error) { return repo.UpdateTimeline(ctx, "nope", nil) }},
		{"resolve", func() (bool, error) { return repo.Resolve(ctx, "nope", t0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.fn()
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestIncidentRepository_UpdateStatusKeepsResolvedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))
	require.NoError(t, repo.InsertIncident(ctx, newIncident("st000001", t0)))

	fetch := func() *incident.Incident {
		inc, found, err := repo.FetchByID(ctx, "st000001")
		require.NoError(t, err)
		require.True(t, found)
		return inc
	}

	ok, err := repo.UpdateStatus(ctx, "st000001", incident.StatusResolved, t0.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	inc := fetch()
	require.NotNil(t, inc.ResolvedAt)
	assert.True(t, inc.ResolvedAt.Equal(t0.Add(time.Hour)))

	// already resolved: the original stamp is kept
	_, err = repo.UpdateStatus(ctx, "st000001", incident.StatusResolved, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, fetch().ResolvedAt.Equal(t0.Add(time.Hour)))

	_, err = repo.UpdateStatus(ctx, "st000001", incident.StatusMonitoring, t0.Add(3*time.Hour))
	require.NoError(t, err)
	inc = fetch()
	assert.Equal(t, incident.StatusMonitoring, inc.Status)
	assert.Nil(t, inc.ResolvedAt)
}

func TestIncidentRepository_ResolveRestamps(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))
	require.NoError(t, repo.InsertIncident(ctx, newIncident("rs000001", t0)))

	for _, at := range []time.Time{t0.Add(10 * time.Minute), t0.Add(25 * time.Minute)} {
		ok, err := repo.Resolve(ctx, "rs000001", at)
		require.NoError(t, err)
		require.True(t, ok)

		inc, _, err := repo.FetchByID(ctx, "rs000001")
		require.NoError(t, err)
		assert.Equal(t, incident.StatusResolved, inc.Status)
		require.NotNil(t, inc.ResolvedAt)
		assert.True(t, inc.ResolvedAt.Equal(at))
	}
}

func TestIncidentRepository_UpdateTimeline(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))
	require.NoError(t, repo.InsertIncident(ctx, newIncident("tl000001", t0)))

	timeline := []incident.TimelineEvent{
		{Timestamp: t0.Add(time.Minute), Event: "paged", Author: "system"},
		{Timestamp: t0.Add(2 * time.Minute), Event: "ack", Author: "alice"},
	}
	ok, err := repo.UpdateTimeline(ctx, "tl000001", timeline)
	require.NoError(t, err)
	require.True(t, ok)

	inc, _, err := repo.FetchByID(ctx, "tl000001")
	require.NoError(t, err)
	require.Len(t, inc.Timeline, 2)
	for i := range timeline {
		assert.Equal(t, timeline[i].Event, inc.Timeline[i].Event)
		assert.Equal(t, timeline[i].Author, inc.Timeline[i].Author)
		assert.True(t, timeline[i].Timestamp.Equal(inc.Timeline[i].Timestamp))
	}
}

func TestIncidentRepository_FetchActive(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.InsertIncident(ctx, newIncident(fmt.Sprintf("act%05d", i), t0.Add(time.Duration(i)*time.Minute))))
	}
	_, err := repo.Resolve(ctx, "act00002", t0.Add(time.Hour))
	require.NoError(t, err)

	active, err := repo.FetchActive(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(active))
	for _, inc := range active {
		ids = append(ids, inc.ID)
	}
	assert.Equal(t, []string{"act00003", "act00001", "act00000"}, ids)
}

func TestIncidentRepository_FetchActiveEmpty(t *testing.T) {
	active, err := NewIncidentRepository(openTestDB(t)).FetchActive(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, active)
	assert.Empty(t, active)
}

func TestIncidentRepository_AverageResolutionMinutes(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))

	avg, err := repo.AverageResolutionMinutes(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, avg)

	seed := []struct {
		id       string
		severity string
		minutes  int
	}{
		{"mt000001", "P1", 20},
		{"mt000002", "P1", 40},
		{"mt000003", "P3", 90},
	}
	for _, s := range seed {
		inc := newIncident(s.id, t0)
		inc.Severity = s.severity
		require.NoError(t, repo.InsertIncident(ctx, inc))
		_, err := repo.Resolve(ctx, s.id, t0.Add(time.Duration(s.minutes)*time.Minute))
		require.NoError(t, err)
	}
	// still open, must not count
	require.NoError(t, repo.InsertIncident(ctx, newIncident("mt000004", t0)))

	tests := []struct {
		severity string
		want     float64
	}{
		{"", 50},
		{"P1", 30},
		{"P3", 90},
		{"P2", 0},
	}
	for _, tt := range tests {
		t.Run("severity="+tt.severity, func(t *testing.T) {
			got, err := repo.AverageResolutionMinutes(ctx, tt.severity)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestIncidentRepository_MalformedRow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewIncidentRepository(db)

	_, err := db.Exec(`
		INSERT INTO incidents (id, title, severity, status, services, timeline, created_at)
		VALUES ('bad00001', 'broken', 'P1', 'new', '{not json', '[]', '2026-10-19T08:00:00.000000')
	`)
	require.NoError(t, err)

	_, _, err = repo.FetchByID(ctx, "bad00001")
	require.Error(t, err)
	assert.True(t, errors.IsStorage(err), "got %v", err)

	_, err = repo.FetchActive(ctx)
	assert.True(t, errors.IsStorage(err), "got %v", err)
}

func TestIncidentRepository_NullColumnsDecodeEmpty(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.Exec(`
		INSERT INTO incidents (id, title, status, services, timeline, created_at)
		VALUES ('nul00001', 'sparse', 'new', '', '', '2026-10-19T08:00:00')
	`)
	require.NoError(t, err)

	inc, found, err := NewIncidentRepository(db).FetchByID(ctx, "nul00001")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{}, inc.Services)
	assert.Equal(t, []incident.TimelineEvent{}, inc.Timeline)
	assert.Empty(t, inc.Severity)
	assert.True(t, inc.CreatedAt.Equal(t0))
}

func TestIncidentRepository_RunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))

	boom := fmt.Errorf("boom")
	err := repo.RunInTx(ctx, func(ctx context.Context, tx incident.Repository) error {
		if err := tx.InsertIncident(ctx, newIncident("tx000001", t0)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := repo.FetchByID(ctx, "tx000001")
	require.NoError(t, err)
	assert.False(t, found, "rolled back insert is visible")

	err = repo.RunInTx(ctx, func(ctx context.Context, tx incident.Repository) error {
		return tx.InsertIncident(ctx, newIncident("tx000002", t0))
	})
	require.NoError(t, err)
	_, found, err = repo.FetchByID(ctx, "tx000002")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestIncidentRepository_Stats(t *testing.T) {
	ctx := context.Background()
	repo := NewIncidentRepository(openTestDB(t))

	for i, sev := range []string{"P1", "P1", "P2", "P3"} {
		inc := newIncident(fmt.Sprintf("sts%05d", i), t0)
		inc.Severity = sev
		require.NoError(t, repo.InsertIncident(ctx, inc))
	}
	_, err := repo.Resolve(ctx, "sts00000", t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, "sts00002", incident.StatusInvestigating, t0)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"P1": 1, "P2": 1, "P3": 1}, stats.ActiveBySeverity)
	assert.Equal(t, map[string]int{"P1": 1}, stats.ResolvedBySeverity)
	assert.Equal(t, map[string]int{"new": 2, "investigating": 1, "resolved": 1}, stats.CountByStatus)
}
