package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kennyhq/contactlink/internal/linker"
	"github.com/kennyhq/contactlink/internal/resolver"
	"github.com/kennyhq/contactlink/internal/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func printHistogram(w io.Writer, h types.ConfidenceHistogram) {
	fmt.Fprintf(w, "%s\n", yellow("Confidence:"))
	fmt.Fprintf(w, "  High (>0.8):       %d\n", h.High)
	fmt.Fprintf(w, "  Medium (0.5-0.8):  %d\n", h.Medium)
	fmt.Fprintf(w, "  Low (<0.5):        %d\n", h.Low)
}

func printResolveSummary(w io.Writer, res *resolver.Result, elapsed time.Duration) {
	fmt.Fprintf(w, "\n%s Resolved %d contacts in %s\n\n", green("✓"), res.Total, formatDuration(elapsed))
	fmt.Fprintf(w, "  Address book:  %d\n", res.Loaded)
	fmt.Fprintf(w, "  Extracted:     %d\n", res.Extracted)
	fmt.Fprintf(w, "  Matched:       %d\n", res.Matched)
	fmt.Fprintf(w, "  Created:       %d\n", res.Created)
	fmt.Fprintf(w, "  Dropped:       %d\n", res.Dropped)
	if res.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped:       %s\n", yellow(res.Skipped))
	}
	fmt.Fprintln(w)
	printHistogram(w, res.Histogram)
	fmt.Fprintln(w)
}

func printLinkSummary(w io.Writer, res *linker.Result, elapsed time.Duration) {
	fmt.Fprintf(w, "\n%s Created %d document links in %s\n\n", green("✓"), res.Total, formatDuration(elapsed))
	for _, s := range res.Sources {
		fmt.Fprintf(w, "  %s %-10s %d links from %d documents", gray("→"), s.Strategy, s.Links, s.Documents)
		if s.Skipped > 0 {
			fmt.Fprintf(w, " (%s skipped)", yellow(s.Skipped))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	printHistogram(w, res.Histogram)
	fmt.Fprintln(w)
}

func printContactMatches(w io.Writer, query string, matches []types.ContactMatch) {
	if len(matches) == 0 {
		fmt.Fprintf(w, "%s No contacts match %q\n", gray("→"), query)
		return
	}
	fmt.Fprintf(w, "\n%s %d contact(s) matching %q:\n\n", green("✓"), len(matches), query)
	for _, m := range matches {
		c := m.Contact
		fmt.Fprintf(w, "%s %s  %s\n", cyan(formatScore(m.Score)), c.DisplayName, gray(c.ID))
		if c.Company != "" {
			fmt.Fprintf(w, "      %s\n", c.Company)
		}
		for _, id := range reachableIdentities(c.Identities) {
			fmt.Fprintf(w, "      %s: %s\n", id.Kind, id.Value)
		}
	}
	fmt.Fprintln(w)
}

func printContactSummary(w io.Writer, s *types.ContactSummary) {
	fmt.Fprintf(w, "\n%s\n", bold(s.DisplayName))
	fmt.Fprintf(w, "  ID:          %s\n", s.ID)
	if s.Company != "" {
		fmt.Fprintf(w, "  Company:     %s\n", s.Company)
	}
	if s.Role != "" {
		fmt.Fprintf(w, "  Role:        %s\n", s.Role)
	}
	fmt.Fprintf(w, "  Confidence:  %s\n", formatScore(s.ConfidenceScore))
	fmt.Fprintf(w, "  Documents:   %d\n", s.TotalInteractions)
	if s.LastInteraction != nil {
		fmt.Fprintf(w, "  Last seen:   %s\n", s.LastInteraction.Local().Format("2006-01-02 15:04"))
	}

	ids := make([]types.Identity, len(s.Identities))
	copy(ids, s.Identities)
	sort.SliceStable(ids, func(i, j int) bool {
		return ids[i].Confidence > ids[j].Confidence
	})
	fmt.Fprintf(w, "\n%s\n", yellow("Identities:"))
	for _, id := range ids {
		fmt.Fprintf(w, "  %-16s %-32s %s %s\n", id.Kind, id.Value, formatScore(id.Confidence), gray(id.Source))
	}
	fmt.Fprintln(w)
}

func printTopContacts(w io.Writer, summaries []*types.ContactSummary) {
	if len(summaries) == 0 {
		fmt.Fprintf(w, "%s No linked contacts yet (run link-documents)\n", gray("→"))
		return
	}
	fmt.Fprintf(w, "\n%s\n\n", yellow("Top contacts by linked documents:"))
	for i, s := range summaries {
		line := fmt.Sprintf("%3d. %-30s %5d docs", i+1, truncate(s.DisplayName, 30), s.TotalInteractions)
		if s.LastInteraction != nil {
			line += "  " + gray("last "+s.LastInteraction.Local().Format("2006-01-02"))
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

// reachableIdentities drops address-book record references
func reachableIdentities(ids []types.Identity) []types.Identity {
	var out []types.Identity
	for _, id := range ids {
		if id.Kind != types.KindAddressBookRecord {
			out = append(out, id)
		}
	}
	return out
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		s := d.Round(time.Second).String()
		if strings.HasSuffix(s, "m0s") {
			s = strings.TrimSuffix(s, "0s")
		}
		return s
	}
}

func formatLastRun(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
