package verifier

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/armadaproject/mvcheck/internal/mvcheck/compare"
	"github.com/armadaproject/mvcheck/internal/mvcheck/metrics"
	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

func printReport(out io.Writer, report PassReport, diffLimit int) {
	fmt.Fprintf(out, "Verifying view table integrity (pass %d)...\n", report.Number)
	if report.BaseErr != nil {
		fmt.Fprintf(out, "ERROR: %s\n", report.BaseErr)
	} else {
		fmt.Fprintf(out, "Base table has %d rows\n", report.BaseCount)
	}
	for _, node := range report.Nodes {
		printNodeResult(out, node, diffLimit)
	}
	fmt.Fprintln(out, summaryLine(report))
}

func printNodeResult(out io.Writer, r NodeResult, diffLimit int) {
	node := r.Node.String()
	switch {
	case r.Skipped:
		fmt.Fprintf(out, "Skipped %s: no base table snapshot\n", node)
		return
	case r.Err != nil:
		fmt.Fprintf(out, "ERROR: Couldn't read the view from %s: %s\n", node, r.Err)
		return
	case r.Matched:
		fmt.Fprintf(out, "View from %s matches the base table (%d rows)\n", node, r.ViewCount)
	default:
		fmt.Fprintf(out, "ERROR: View from %s doesn't match the base table\n", node)
		fmt.Fprintf(out, "\tbase rows: %d, view rows: %d\n", r.BaseCount, r.ViewCount)
		printDiff(out, r.Diff, diffLimit)
	}
	if len(r.ViewDuplicates) > 0 {
		fmt.Fprintf(out, "\tWARNING: view returned %d row(s) for repeated keys: %s\n", len(r.ViewDuplicates), formatRows(r.ViewDuplicates, diffLimit))
	}
}

func printDiff(out io.Writer, diff compare.Diff, limit int) {
	if len(diff.Missing) > 0 {
		fmt.Fprintf(out, "\tmissing from view (%d): %s\n", len(diff.Missing), formatRows(diff.Missing, limit))
	}
	if len(diff.Extraneous) > 0 {
		fmt.Fprintf(out, "\tnot in base table (%d): %s\n", len(diff.Extraneous), formatRows(diff.Extraneous, limit))
	}
	if len(diff.Mismatching) > 0 {
		shown := diff.Truncate(limit).Mismatching
		parts := make([]string, len(shown))
		for i, m := range shown {
			parts[i] = fmt.Sprintf("%s base r=%d view r=%d", m.Key, m.BaseValue, m.ViewValue)
		}
		fmt.Fprintf(out, "\tdifferent r (%d): %s%s\n", len(diff.Mismatching), strings.Join(parts, ", "), more(len(diff.Mismatching), len(shown)))
	}
}

func formatRows(rows []model.Row, limit int) string {
	shown := rows
	if limit >= 0 && len(rows) > limit {
		shown = rows[:limit]
	}
	parts := make([]string, len(shown))
	for i, row := range shown {
		parts[i] = row.String()
	}
	return strings.Join(parts, " ") + more(len(rows), len(shown))
}

func more(total, shown int) string {
	if total > shown {
		return fmt.Sprintf(" ... and %d more", total-shown)
	}
	return ""
}

func summaryLine(report PassReport) string {
	took := report.Duration.Round(time.Millisecond)
	if report.BaseErr != nil {
		return fmt.Sprintf("Pass %d aborted: no base table snapshot to compare against (took %s)", report.Number, took)
	}
	matched, mismatched, failed := 0, 0, 0
	for _, n := range report.Nodes {
		switch n.outcome() {
		case metrics.NodeMatch:
			matched++
		case metrics.NodeMismatch:
			mismatched++
		default:
			failed++
		}
	}
	return fmt.Sprintf(
		"Pass %d: %d/%d nodes match, %d mismatched, %d failed to read (took %s)",
		report.Number, matched, len(report.Nodes), mismatched, failed, took,
	)
}
