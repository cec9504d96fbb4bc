package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const displayTimeLayout = "2006-01-02 15:04:05"

// Table renders data as a formatted table.
type Table struct {
	headers []string
	rows    [][]string
	writer  io.Writer
}

// NewTable creates a new table with the given headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		headers: headers,
		writer:  w,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

// Render writes the table.
func (t *Table) Render() {
	w := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(t.headers, "\t"))

	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))

	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// printOutput prints data as json or yaml.
func printOutput(w io.Writer, format string, data interface{}) error {
	switch format {
	case "yaml":
		return printYAML(w, data)
	default:
		return printJSON(w, data)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(w io.Writer, data interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(data)
}

// titleWidth picks how much of a title fits next to the fixed columns.
// Output that is not a terminal gets a fixed width.
func titleWidth(w io.Writer) int {
	const fixedColumns, fallback = 64, 50

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return fallback
	}
	return min(max(cols-fixedColumns, 20), 120)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatSeverity returns a severity string with visual indicator.
func formatSeverity(severity string) string {
	switch strings.ToUpper(severity) {
	case "P1":
		return "[!] P1"
	case "P2":
		return "[H] P2"
	case "P3":
		return "[M] P3"
	case "P4":
		return "[L] P4"
	default:
		return severity
	}
}

// formatStatus returns a status string with visual indicator.
func formatStatus(status string) string {
	switch strings.ToLower(status) {
	case "resolved":
		return "[+] " + status
	case "new":
		return "[-] " + status
	case "investigating", "identified":
		return "[*] " + status
	case "monitoring":
		return "[~] " + status
	default:
		return status
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format(displayTimeLayout)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}
