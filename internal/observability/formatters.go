// Package observability provides formatted operator output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/rank-tracker/internal/compact"
	"github.com/jonathan/rank-tracker/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for the operator
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintReport outputs the summary of one ingestion batch.
func (p *Printer) PrintReport(r *types.RunReport) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Planned:    %d units\n", r.Planned))
	sb.WriteString(fmt.Sprintf("Fetched:    %d units (%d rows)\n", r.Fetched, r.Rows))
	sb.WriteString(fmt.Sprintf("Cached:     %d\n", r.Cached))
	sb.WriteString(fmt.Sprintf("Not found:  %d\n", r.NotFound))
	sb.WriteString(fmt.Sprintf("Timed out:  %d\n", r.TimedOut))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", r.Failed))
	sb.WriteString(fmt.Sprintf("Parse errs: %d", r.ParseErrors))
	if r.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError:      %s", r.Error))
	}

	p.printBox(strings.ToUpper(string(r.Kind))+" INGESTION", sb.String())
}

// PrintCompaction outputs the statistics of every compacted table.
func (p *Printer) PrintCompaction(stats []compact.Stats) {
	if len(stats) == 0 {
		return
	}

	var sb strings.Builder
	for i, s := range stats {
		sb.WriteString(fmt.Sprintf("%s\n", s.Kind))
		sb.WriteString(fmt.Sprintf("  units %d (corrupt %d), rows %d -> %d\n", s.Units, s.Corrupt, s.RowsIn, s.RowsOut))
		switch s.Kind {
		case types.KindRankings:
			sb.WriteString(fmt.Sprintf("  duplicates %d, dropped %d, unresolved stripped %d, gap markers %d\n",
				s.Duplicates, s.Dropped, s.Stripped, s.Markers))
			sb.WriteString(fmt.Sprintf("  unresolved names %d", s.Unresolved))
		case types.KindTournaments:
			sb.WriteString(fmt.Sprintf("  duplicates %d, undated or unfinished %d, columns %d", s.Duplicates, s.Undated, s.Columns))
		default:
			sb.WriteString(fmt.Sprintf("  duplicates %d", s.Duplicates))
		}
		if i < len(stats)-1 {
			sb.WriteString("\n\n")
		}
	}

	p.printBox("COMPACTION", sb.String())
}

// PrintUnresolved outputs names that never resolved to a player ID, most
// frequent first. A limit of zero or less prints all of them.
func (p *Printer) PrintUnresolved(list []types.UnresolvedIdentity, limit int) {
	if len(list) == 0 {
		p.printBox("UNRESOLVED NAMES", "None")
		return
	}

	count := len(list)
	if limit > 0 {
		count = min(count, limit)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d names without a player ID:\n\n", len(list)))
	for i := 0; i < count; i++ {
		u := list[i]
		sb.WriteString(fmt.Sprintf("%-30s %4dx  %s .. %s\n", truncate(u.Name, 30), u.Occurrences,
			types.FormatDate(u.FirstSeen), types.FormatDate(u.LastSeen)))
	}
	if len(list) > count {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(list)-count))
	}

	p.printBox("UNRESOLVED NAMES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSearchResults outputs the players matching query.
func (p *Printer) PrintSearchResults(query, stage string, players []types.Player) {
	var sb strings.Builder
	if len(players) == 0 {
		sb.WriteString("No players found")
	} else {
		sb.WriteString(fmt.Sprintf("%d players (matched %s)\n\n", len(players), stage))
		count := min(len(players), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("%-10s %s\n", players[i].PlayerID, players[i].Label()))
		}
		if len(players) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(players)-maxItemsToShow))
		}
	}

	p.printBox(fmt.Sprintf("SEARCH %q", query), strings.TrimSuffix(sb.String(), "\n"))
}
