package oncall

import "time"

// DefaultHandoff hands the pager over every day at midnight, local time.
const DefaultHandoff = "0 0 * * *"

// defaultRoster is indexed by weekday, Monday first.
var defaultRoster = [...]string{"alexa", "alice", "octavia", "aria", "shellfish"}

// DefaultRoster returns the team's fixed on-call order. Each call returns
// a fresh slice.
func DefaultRoster() []string {
	return append([]string(nil), defaultRoster[:]...)
}

// Shift is one on-call window.
type Shift struct {
	Assignee string    `json:"assignee" yaml:"assignee"`
	Start    time.Time `json:"start" yaml:"start"`
	End      time.Time `json:"end" yaml:"end"`
}
