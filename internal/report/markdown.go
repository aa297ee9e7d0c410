// Package report renders a finished run as Markdown so results can be
// reviewed and shared without opening the spreadsheet.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"phonehunt/internal/batch"
)

// Run gathers everything one extraction run produced.
type Run struct {
	Input      string
	Output     string
	StartedAt  time.Time
	FinishedAt time.Time
	Summaries  []*batch.Summary
}

// Totals sums the per-batch outcome counters.
func (r *Run) Totals() (resolved, skipped, unresolved int) {
	for _, s := range r.Summaries {
		resolved += s.Resolved
		skipped += s.Skipped
		unresolved += s.Unresolved
	}
	return resolved, skipped, unresolved
}

// Aborted reports whether any batch hit proxy exhaustion.
func (r *Run) Aborted() bool {
	for _, s := range r.Summaries {
		if s.Aborted {
			return true
		}
	}
	return false
}

func (r *Run) abortReason() string {
	for _, s := range r.Summaries {
		if s.Aborted {
			return s.AbortReason
		}
	}
	return ""
}

// MarkdownWriter renders runs as Markdown.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the full run report.
func (w *MarkdownWriter) Write(run *Run) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, run)
	w.writeBatches(md, run)
	w.writeUnresolved(md, run)
	w.writeFooter(md)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *Run) {
	md.H1("Phone Extraction Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Input", "`" + run.Input + "`"},
			{"Output", "`" + run.Output + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()},
			{"Status", w.statusText(run)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) statusText(run *Run) string {
	if run.Aborted() {
		return "⚠️ Aborted (partial results)"
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *Run) {
	md.H2("Outcome Summary")
	md.PlainText("")

	resolved, skipped, unresolved := run.Totals()
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"🟢 Resolved", strconv.Itoa(resolved)},
			{"⚪ Skipped", strconv.Itoa(skipped)},
			{"🟡 Unresolved", strconv.Itoa(unresolved)},
			{"**Total**", "**" + strconv.Itoa(resolved+skipped+unresolved) + "**"},
		},
	})
	md.PlainText("")

	switch {
	case run.Aborted():
		md.Warningf(
			"The run aborted early: %s. Records after the abort point were left untouched and can be resumed.",
			run.abortReason(),
		)
	case unresolved > 0:
		md.Note("Some records stayed unresolved. Re-running the same range retries only those.")
	default:
		md.Tip("Every processable record resolved.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeBatches(md *markdown.Markdown, run *Run) {
	md.H2("Batches")
	md.PlainText("")

	if len(run.Summaries) == 0 {
		md.PlainText("No batches ran.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(run.Summaries))
	for i, s := range run.Summaries {
		status := "complete"
		if s.Aborted {
			status = "aborted"
		}
		rows[i] = []string{
			shortID(s.RunID.String()),
			fmt.Sprintf("%d-%d", s.Start, s.End),
			strconv.Itoa(s.Resolved),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Unresolved),
			status,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Batch", "Range", "Resolved", "Skipped", "Unresolved", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeUnresolved lists the records a human should look at by hand.
func (w *MarkdownWriter) writeUnresolved(md *markdown.Markdown, run *Run) {
	var items []string
	for _, s := range run.Summaries {
		for _, o := range s.Outcomes {
			if o.Outcome != batch.OutcomeUnresolved {
				continue
			}
			items = append(items, fmt.Sprintf(
				"row %d, %s: %s (%s)",
				o.Row, o.Role, o.Name, truncateString(o.Detail, 60),
			))
		}
	}
	if len(items) == 0 {
		return
	}

	md.H2("Unresolved Records")
	md.PlainText("")

	const maxListed = 25
	if len(items) > maxListed {
		md.BulletList(items[:maxListed]...)
		md.PlainText("")
		md.PlainTextf("...and %d more.", len(items)-maxListed)
	} else {
		md.BulletList(items...)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by phonehunt*")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
