package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
)

const namespace = "incidents"

// Source is the read side of the incident service that metrics are built from
type Source interface {
	Stats(ctx context.Context) (*incident.Stats, error)
	MeanTimeToResolve(ctx context.Context, severity string) (float64, error)
	OnCall() string
}

// Recorder holds incident gauges on its own registry. The CLI is short-lived,
// so gauges are filled from the store on demand and written out for the
// node_exporter textfile collector rather than served.
type Recorder struct {
	registry *prometheus.Registry

	activeIncidents   *prometheus.GaugeVec
	resolvedIncidents *prometheus.GaugeVec
	incidentsByStatus *prometheus.GaugeVec
	mttrMinutes       *prometheus.GaugeVec
	onCall            *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		activeIncidents: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "incident",
				Name:      "active_count",
				Help:      "Number of unresolved incidents",
			},
			[]string{"severity"},
		),
		resolvedIncidents: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "incident",
				Name:      "resolved_count",
				Help:      "Number of resolved incidents",
			},
			[]string{"severity"},
		),
		incidentsByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "incident",
				Name:      "status_count",
				Help:      "Number of incidents in each status",
			},
			[]string{"status"},
		),
		mttrMinutes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "incident",
				Name:      "mttr_minutes",
				Help:      "Mean time to resolve in minutes",
			},
			[]string{"severity"},
		),
		onCall: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "oncall",
				Name:      "info",
				Help:      "Current on-call assignee",
			},
			[]string{"assignee"},
		),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// SetStats replaces the incident count gauges
func (r *Recorder) SetStats(stats *incident.Stats) {
	r.activeIncidents.Reset()
	r.resolvedIncidents.Reset()
	r.incidentsByStatus.Reset()

	for sev, n := range stats.ActiveBySeverity {
		r.activeIncidents.WithLabelValues(severityLabel(sev)).Set(float64(n))
	}
	for sev, n := range stats.ResolvedBySeverity {
		r.resolvedIncidents.WithLabelValues(severityLabel(sev)).Set(float64(n))
	}
	for status, n := range stats.CountByStatus {
		r.incidentsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// SetMTTR sets the MTTR gauge; an empty severity is recorded as "all"
func (r *Recorder) SetMTTR(severity string, minutes float64) {
	if severity == "" {
		severity = "all"
	}
	r.mttrMinutes.WithLabelValues(severity).Set(minutes)
}

// SetOnCall marks assignee as the only current on-call
func (r *Recorder) SetOnCall(assignee string) {
	r.onCall.Reset()
	r.onCall.WithLabelValues(assignee).Set(1)
}

// Collect fills every gauge from src. MTTR is recorded overall and for
// each non-empty severity seen among resolved incidents.
func (r *Recorder) Collect(ctx context.Context, src Source) error {
	stats, err := src.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load incident stats: %w", err)
	}
	r.SetStats(stats)

	severities := []string{""}
	for sev := range stats.ResolvedBySeverity {
		// "" already means every severity to MeanTimeToResolve
		if sev != "" {
			severities = append(severities, sev)
		}
	}
	for _, sev := range severities {
		mttr, err := src.MeanTimeToResolve(ctx, sev)
		if err != nil {
			return fmt.Errorf("failed to compute MTTR: %w", err)
		}
		r.SetMTTR(sev, mttr)
	}

	r.SetOnCall(src.OnCall())
	return nil
}

// WriteTextfile writes the registry in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func severityLabel(sev string) string {
	if sev == "" {
		return "unknown"
	}
	return sev
}
