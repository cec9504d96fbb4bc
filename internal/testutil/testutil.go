package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/pratik-mahalle/incidents/internal/config"
	"github.com/pratik-mahalle/incidents/internal/repository/sqlite"
)

// NewTestDB opens a migrated SQLite store in a per-test temp directory.
// The database is closed when the test finishes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "state", "incidents.db"),
		BusyTimeout: time.Second,
	}
	db, err := sqlite.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Clock is a settable time source for tests
type Clock struct {
	now time.Time
}

// NewClock returns a clock stopped at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Set moves the clock to t
func (c *Clock) Set(t time.Time) { c.now = t }
