package sprintzero

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lucasjlepore/sprint-analyzer/detection"
)

const sessionStructureSchemaVersion = "session_structure_v1"

// SessionStructure is an LLM-oriented view of a batch grouped by session date.
type SessionStructure struct {
	SchemaVersion string         `json:"schema_version"`
	Sessions      []SessionBlock `json:"sessions"`
}

// SessionBlock summarizes the analyzed sprints of one session date.
type SessionBlock struct {
	Date           string        `json:"date"`
	Sprints        int           `json:"sprints"`
	FirstIndex     int           `json:"first_index"`
	LastIndex      int           `json:"last_index"`
	TotalDistanceM int           `json:"total_distance_m"`
	Sets           []DistanceSet `json:"sets"`
	Confidence     float64       `json:"confidence"` // share of sprints whose scans agreed
	CanonicalLabel string        `json:"canonical_label"`
}

// DistanceSet captures the reps run at one distance within a session.
type DistanceSet struct {
	DistanceM       int     `json:"distance_m"`
	Reps            int     `json:"reps"`
	BestSeconds     float64 `json:"best_seconds"`
	MeanSeconds     float64 `json:"mean_seconds"`
	SlowestSeconds  float64 `json:"slowest_seconds"`
	FadeSeconds     float64 `json:"fade_seconds"` // last rep minus first rep
	AgreedDecisions int     `json:"agreed_decisions"`
}

// InferSessionStructure groups results by date in first-seen order and
// summarizes each distance's reps by final duration.
func InferSessionStructure(results []Result) SessionStructure {
	ss := SessionStructure{SchemaVersion: sessionStructureSchemaVersion, Sessions: []SessionBlock{}}

	order := make([]string, 0)
	byDate := map[string][]Result{}
	for _, r := range results {
		if _, ok := byDate[r.Date]; !ok {
			order = append(order, r.Date)
		}
		byDate[r.Date] = append(byDate[r.Date], r)
	}

	for _, date := range order {
		ss.Sessions = append(ss.Sessions, buildSessionBlock(date, byDate[date]))
	}
	return ss
}

func buildSessionBlock(date string, results []Result) SessionBlock {
	block := SessionBlock{
		Date:       date,
		Sprints:    len(results),
		FirstIndex: results[0].Index,
		LastIndex:  results[len(results)-1].Index,
	}

	byDistance := map[int][]Result{}
	agreed := 0
	for _, r := range results {
		block.TotalDistanceM += r.Distance
		byDistance[r.Distance] = append(byDistance[r.Distance], r)
		if r.Detection.Decision == detection.Agree {
			agreed++
		}
	}
	block.Confidence = safeDiv(float64(agreed), float64(len(results)))

	distances := make([]int, 0, len(byDistance))
	for d := range byDistance {
		distances = append(distances, d)
	}
	sort.Ints(distances)
	for _, d := range distances {
		block.Sets = append(block.Sets, buildDistanceSet(d, byDistance[d]))
	}
	block.CanonicalLabel = buildCanonicalSessionLabel(block)
	return block
}

func buildDistanceSet(distance int, reps []Result) DistanceSet {
	set := DistanceSet{DistanceM: distance, Reps: len(reps), BestSeconds: math.Inf(1), SlowestSeconds: math.Inf(-1)}
	sum := 0.0
	for _, r := range reps {
		final := r.Detection.FinalDuration
		sum += final
		set.BestSeconds = math.Min(set.BestSeconds, final)
		set.SlowestSeconds = math.Max(set.SlowestSeconds, final)
		if r.Detection.Decision == detection.Agree {
			set.AgreedDecisions++
		}
	}
	set.MeanSeconds = safeDiv(sum, float64(len(reps)))
	set.FadeSeconds = reps[len(reps)-1].Detection.FinalDuration - reps[0].Detection.FinalDuration
	return set
}

func buildCanonicalSessionLabel(b SessionBlock) string {
	if len(b.Sets) == 0 {
		return "no analyzed sprints"
	}
	parts := make([]string, 0, len(b.Sets))
	for _, s := range b.Sets {
		if s.Reps == 1 {
			parts = append(parts, fmt.Sprintf("%dm in %s", s.DistanceM, shortDuration(s.BestSeconds)))
			continue
		}
		parts = append(parts, fmt.Sprintf("%dx%dm (best %s, mean %s)",
			s.Reps, s.DistanceM, shortDuration(s.BestSeconds), shortDuration(s.MeanSeconds)))
	}
	return strings.Join(parts, " + ")
}

// shortDuration renders sprint-scale durations with hundredths.
func shortDuration(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	if seconds < 60 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	m := int(seconds) / 60
	return fmt.Sprintf("%dm%05.2fs", m, seconds-float64(m*60))
}

func safeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
