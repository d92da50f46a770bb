package sprintzero

import (
	"fmt"
	"strings"
)

// BuildNotes renders analyzed sprints as a plain-text table followed by a
// short summary.
func BuildNotes(results []Result) string {
	if len(results) == 0 {
		return "No analyzable sprints (need curves, distance >= 60 m and at least 100 acceleration samples)."
	}

	var b strings.Builder
	fmt.Fprintf(
		&b,
		"%3s  %-10s  %5s  %8s  %8s  %6s  %-14s  %8s\n",
		"#", "Date", "Dist", "Forward", "Backward", "Gap", "Decision", "Final",
	)
	b.WriteString(strings.Repeat("-", 78))
	b.WriteByte('\n')

	counts := map[string]int{}
	for _, r := range results {
		d := r.Detection
		counts[d.Decision.String()]++
		fmt.Fprintf(
			&b,
			"%3d  %-10s  %4dm  %8s  %8s  %6s  %-14s  %8s\n",
			r.Index,
			r.Date,
			r.Distance,
			formatSeconds(d.ForwardDuration),
			formatSeconds(d.BackwardDuration),
			formatSeconds(d.Gap),
			d.Decision,
			formatSeconds(d.FinalDuration),
		)
	}

	fmt.Fprintf(
		&b,
		"\n%d sprints | agree %d | trust_forward %d | trust_backward %d\n",
		len(results),
		counts["agree"],
		counts["trust_forward"],
		counts["trust_backward"],
	)
	for _, r := range results {
		d := r.Detection
		if d.LevelFallback {
			fmt.Fprintf(&b, "- #%d: sprint level fell back to %.1f g (sparse mid-section)\n", r.Index, d.SprintLevel)
		}
		if d.StartFallback {
			fmt.Fprintf(&b, "- #%d: no rolling value above the start threshold; timed from first sample\n", r.Index)
		}
	}
	return strings.TrimSpace(b.String())
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.2fs", s)
}
