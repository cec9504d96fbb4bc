package incident

import "testing"

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusNew, true},
		{StatusInvestigating, true},
		{StatusIdentified, true},
		{StatusMonitoring, true},
		{StatusResolved, true},
		{"bogus", false},
		{"", false},
		{"Resolved", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatuses_ReturnsCopy(t *testing.T) {
	s := Statuses()
	if len(s) != 5 || s[0] != StatusNew || s[4] != StatusResolved {
		t.Fatalf("Statuses() = %v", s)
	}
	s[0] = "mutated"
	if Statuses()[0] != StatusNew {
		t.Error("Statuses() shares its backing array")
	}
}
