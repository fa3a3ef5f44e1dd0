// Package report renders and persists the attention report of a recording
// session.
//
// A saved report is plain text: the stage timestamp preamble, a blank line,
// then one "stage\tfocus\tzone\ttotalMs" record per line. Decimal values
// always use '.' as the separator.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Store persists a finished Document to a destination. Implementations must
// leave doc untouched so a failed save can be retried elsewhere.
type Store interface {
	Save(ctx context.Context, dest string, doc *Document) error
}

// StageMark records when a stage or task boundary was set.
type StageMark struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// Row is the structured form of one attention record.
type Row struct {
	Stage   string `json:"stage"`
	Focus   string `json:"focus"`
	Zone    string `json:"zone"`
	TotalMs int64  `json:"total_ms"`
	Glances int    `json:"glances"`
}

// Line formats the row as a report record.
func (r Row) Line() string {
	return fmt.Sprintf("%s\t%s\t%s\t%d", r.Stage, r.Focus, r.Zone, r.TotalMs)
}

// Document is the finished report of one session.
type Document struct {
	SessionID string      `json:"session_id"`
	Selector  string      `json:"selector"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
	Stages    []StageMark `json:"stages"`
	// Attention holds the sorted, deduplicated report records.
	Attention []string `json:"attention"`
	Rows      []Row    `json:"rows"`
}

// Lines returns lines deduplicated and sorted.
func Lines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// LinesFromRows formats rows into sorted, deduplicated records.
func LinesFromRows(rows []Row) []string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, r.Line())
	}
	return Lines(lines)
}

// Text renders the document in its saved form.
func (d *Document) Text() string {
	stages := make([]string, 0, len(d.Stages))
	for _, m := range d.Stages {
		stages = append(stages, m.Label+"\t"+FormatSeconds(m.At))
	}

	var b strings.Builder
	b.WriteString(strings.Join(stages, "\n"))
	b.WriteString("\n\n")
	b.WriteString(strings.Join(d.Attention, "\n"))
	b.WriteString("\n")
	return b.String()
}

// FormatSeconds renders t as Unix seconds with millisecond precision,
// e.g. "1750719826.467".
func FormatSeconds(t time.Time) string {
	return apd.New(t.UnixMilli(), -3).Text('f')
}

// ParseSeconds is the inverse of FormatSeconds.
func ParseSeconds(s string) (time.Time, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return time.Time{}, fmt.Errorf("invalid seconds %q: %w", s, err)
	}

	ctx := apd.BaseContext.WithPrecision(34)
	var ms, whole apd.Decimal
	if _, err := ctx.Mul(&ms, &d, apd.New(1000, 0)); err != nil {
		return time.Time{}, fmt.Errorf("invalid seconds %q: %w", s, err)
	}
	if _, err := ctx.RoundToIntegralValue(&whole, &ms); err != nil {
		return time.Time{}, fmt.Errorf("invalid seconds %q: %w", s, err)
	}
	v, err := whole.Int64()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid seconds %q: %w", s, err)
	}
	return time.UnixMilli(v).UTC(), nil
}
