package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/incidents/internal/domain/incident"
)

// postmortemTimeLayout matches the store's ISO-8601 local timestamps
const postmortemTimeLayout = "2006-01-02T15:04:05.000000"

var postmortemSections = []struct {
	title, placeholder string
}{
	{"Root Cause Analysis", "Add root cause here"},
	{"Impact", "Describe impact here"},
	{"Action Items", "List action items here"},
	{"Lessons Learned", "Add lessons learned here"},
}

// RenderPostmortem renders the markdown postmortem template for inc.
// Timeline entries appear once each, in stored order.
func RenderPostmortem(inc *incident.Incident) string {
	var b strings.Builder

	resolved := "ongoing"
	if inc.IsResolved() && inc.ResolvedAt != nil {
		resolved = formatLocal(*inc.ResolvedAt)
	}

	b.WriteString("# Incident Postmortem\n\n")
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- **Title:** %s\n", inc.Title)
	fmt.Fprintf(&b, "- **Severity:** %s\n", inc.Severity)
	fmt.Fprintf(&b, "- **Assignee:** %s\n", inc.Assignee)
	fmt.Fprintf(&b, "- **Duration:** %s to %s\n", formatLocal(inc.CreatedAt), resolved)

	b.WriteString("\n## Timeline\n")
	for _, ev := range inc.Timeline {
		fmt.Fprintf(&b, "- **%s** (%s): %s\n", formatLocal(ev.Timestamp), ev.Author, ev.Event)
	}

	for _, sec := range postmortemSections {
		fmt.Fprintf(&b, "\n## %s\n<!-- %s -->\n", sec.title, sec.placeholder)
	}

	return b.String()
}

func formatLocal(t time.Time) string {
	return t.In(time.Local).Format(postmortemTimeLayout)
}
