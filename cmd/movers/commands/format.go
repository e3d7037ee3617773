package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/wonny/movers/internal/movers"
)

const rule = "═══════════════════════════════════════════════════════════"

// printRunSummary prints the outcome of one pipeline run
func printRunSummary(w io.Writer, result *movers.RunResult, artifact string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Run ID    : %s\n", result.RunID)
	fmt.Fprintf(w, "  State     : %s\n", result.State)
	fmt.Fprintf(w, "  Rows      : %d usable, %d excluded\n", result.Rows, result.Rejected)
	fmt.Fprintf(w, "  Artifact  : %s\n", artifact)
	if result.Err != nil {
		fmt.Fprintf(w, "  Cause     : %v\n", result.Err)
	}
	fmt.Fprintln(w, rule)
}

// printSnapshot prints both lists as aligned tables
func printSnapshot(w io.Writer, s *movers.MarketSnapshot) {
	status := "open"
	if s.IsClosed {
		status = "closed"
	}
	fmt.Fprintf(w, "\nUpdated: %s (%s)\n", s.UpdateTime, status)
	if s.ErrorMessage != "" {
		fmt.Fprintf(w, "⚠️  %s\n", s.ErrorMessage)
	}

	printRecords(w, "📈 Gainers", s.Gainers)
	printRecords(w, "📉 Losers", s.Losers)
}

func printRecords(w io.Writer, title string, records []movers.MoverRecord) {
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(records))
	if len(records) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tCode\tName\tOpen\tClose\tChange%\t")
	for i, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n", i+1, r.Code, r.Name, r.Open, r.Close, r.ChangePercent)
	}
	tw.Flush()
}
