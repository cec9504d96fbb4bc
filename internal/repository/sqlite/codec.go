package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
)

// Timestamps are ISO-8601 local-clock strings without a zone. The fixed
// width keeps lexical order equal to chronological order.
const (
	timeLayout      = "2006-01-02T15:04:05.000000"
	timeParseLayout = "2006-01-02T15:04:05.999999999"
)

func formatTime(t time.Time) string {
	return t.In(time.Local).Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeParseLayout, s, time.Local)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// timelineRecord is the stored shape of a timeline entry
type timelineRecord struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Author    string `json:"author"`
}

func encodeServices(services []string) (string, error) {
	if services == nil {
		services = []string{}
	}
	b, err := json.Marshal(services)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeServices(raw sql.NullString) ([]string, error) {
	services := []string{}
	if !raw.Valid || raw.String == "" {
		return services, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return services, nil
}

func encodeTimeline(timeline []incident.TimelineEvent) (string, error) {
	records := lo.Map(timeline, func(ev incident.TimelineEvent, _ int) timelineRecord {
		return timelineRecord{Timestamp: formatTime(ev.Timestamp), Event: ev.Event, Author: ev.Author}
	})
	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTimeline(raw sql.NullString) ([]incident.TimelineEvent, error) {
	timeline := []incident.TimelineEvent{}
	if !raw.Valid || raw.String == "" {
		return timeline, nil
	}
	var records []timelineRecord
	if err := json.Unmarshal([]byte(raw.String), &records); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	for i, rec := range records {
		ts, err := parseTime(rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("decode timeline entry %d: %w", i, err)
		}
		timeline = append(timeline, incident.TimelineEvent{Timestamp: ts, Event: rec.Event, Author: rec.Author})
	}
	return timeline, nil
}
