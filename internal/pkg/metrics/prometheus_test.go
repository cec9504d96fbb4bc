package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
)

type fakeSource struct {
	stats    *incident.Stats
	mttr     map[string]float64
	assignee string
	err      error
	asked    []string
}

func (f *fakeSource) Stats(ctx context.Context) (*incident.Stats, error) {
	return f.stats, f.err
}

func (f *fakeSource) MeanTimeToResolve(ctx context.Context, severity string) (float64, error) {
	f.asked = append(f.asked, severity)
	return f.mttr[severity], nil
}

func (f *fakeSource) OnCall() string { return f.assignee }

func newFakeSource() *fakeSource {
	return &fakeSource{
		stats: &incident.Stats{
			ActiveBySeverity:   map[string]int{"P1": 2, "": 1},
			ResolvedBySeverity: map[string]int{"P2": 3},
			CountByStatus:      map[string]int{"new": 3, "resolved": 3},
		},
		mttr:     map[string]float64{"": 42.5, "P2": 42.5},
		assignee: "octavia",
	}
}

func TestRecorder_Collect(t *testing.T) {
	r := NewRecorder()
	if err := r.Collect(context.Background(), newFakeSource()); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"active P1", testutil.ToFloat64(r.activeIncidents.WithLabelValues("P1")), 2},
		{"active without severity", testutil.ToFloat64(r.activeIncidents.WithLabelValues("unknown")), 1},
		{"resolved P2", testutil.ToFloat64(r.resolvedIncidents.WithLabelValues("P2")), 3},
		{"status new", testutil.ToFloat64(r.incidentsByStatus.WithLabelValues("new")), 3},
		{"mttr all", testutil.ToFloat64(r.mttrMinutes.WithLabelValues("all")), 42.5},
		{"mttr P2", testutil.ToFloat64(r.mttrMinutes.WithLabelValues("P2")), 42.5},
		{"on call", testutil.ToFloat64(r.onCall.WithLabelValues("octavia")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestRecorder_CollectResolvedWithoutSeverity(t *testing.T) {
	src := newFakeSource()
	src.stats.ResolvedBySeverity = map[string]int{"P2": 3, "": 2}
	src.mttr = map[string]float64{"": 30, "P2": 42.5}

	r := NewRecorder()
	if err := r.Collect(context.Background(), src); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	overall := 0
	for _, sev := range src.asked {
		if sev == "" {
			overall++
		}
	}
	if overall != 1 {
		t.Errorf("overall MTTR computed %d times, want 1 (asked %q)", overall, src.asked)
	}
	if got := testutil.ToFloat64(r.mttrMinutes.WithLabelValues("all")); got != 30 {
		t.Errorf("mttr all = %v, want 30", got)
	}
	if got := testutil.CollectAndCount(r.mttrMinutes); got != 2 {
		t.Errorf("mttr series = %d, want 2", got)
	}
	if got := testutil.ToFloat64(r.resolvedIncidents.WithLabelValues("unknown")); got != 2 {
		t.Errorf("resolved unknown = %v, want 2", got)
	}
}

func TestRecorder_CollectError(t *testing.T) {
	src := newFakeSource()
	src.err = fmt.Errorf("db locked")

	if err := NewRecorder().Collect(context.Background(), src); err == nil {
		t.Error("Collect() expected error")
	}
}

func TestRecorder_SetOnCallReplacesPrevious(t *testing.T) {
	r := NewRecorder()
	r.SetOnCall("alice")
	r.SetOnCall("aria")

	if n := testutil.CollectAndCount(r.onCall); n != 1 {
		t.Errorf("on-call series = %d, want 1", n)
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	if err := r.Collect(context.Background(), newFakeSource()); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "incidents.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{
		`incidents_incident_active_count{severity="P1"} 2`,
		`incidents_incident_mttr_minutes{severity="all"} 42.5`,
		`incidents_oncall_info{assignee="octavia"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
