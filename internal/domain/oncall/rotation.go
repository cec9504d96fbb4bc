package oncall

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Rotation maps calendar days to the person holding the pager. The
// roster is copied on construction and never changes afterwards.
type Rotation struct {
	roster  []string
	clock   func() time.Time
	handoff cron.Schedule
}

// Option configures a Rotation
type Option func(*Rotation) error

// WithClock replaces time.Now, so callers can simulate any day.
func WithClock(clock func() time.Time) Option {
	return func(r *Rotation) error {
		if clock == nil {
			return errors.New("clock must not be nil")
		}
		r.clock = clock
		return nil
	}
}

// WithHandoff sets the cron expression (standard five fields) at which
// shifts change hands.
func WithHandoff(spec string) Option {
	return func(r *Rotation) error {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return fmt.Errorf("invalid handoff schedule: %w", err)
		}
		r.handoff = sched
		return nil
	}
}

// NewRotation creates a rotation over roster
func NewRotation(roster []string, opts ...Option) (*Rotation, error) {
	if len(roster) == 0 {
		return nil, errors.New("on-call roster is empty")
	}
	r := &Rotation{
		roster: append([]string(nil), roster...),
		clock:  time.Now,
	}
	if err := WithHandoff(DefaultHandoff)(r); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Roster returns a copy of the rotation order
func (r *Rotation) Roster() []string {
	return append([]string(nil), r.roster...)
}

// AssigneeFor returns who is on call on t's weekday.
func (r *Rotation) AssigneeFor(t time.Time) string {
	return r.roster[weekdayIndex(t)%len(r.roster)]
}

// Current returns who is on call right now.
func (r *Rotation) Current() string {
	return r.AssigneeFor(r.clock())
}

// Upcoming lists the current shift followed by the next n-1 shifts. It
// stops early if the handoff schedule never fires again.
func (r *Rotation) Upcoming(n int) []Shift {
	if n <= 0 {
		return nil
	}
	now := r.clock()
	shifts := make([]Shift, 0, n)
	start := now
	for i := 0; i < n; i++ {
		end := r.handoff.Next(start)
		if end.IsZero() {
			break
		}
		shifts = append(shifts, Shift{
			Assignee: r.AssigneeFor(start),
			Start:    start,
			End:      end,
		})
		start = end
	}
	return shifts
}

// weekdayIndex numbers days Monday=0 .. Sunday=6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
