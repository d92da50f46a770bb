package llmexport

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

// RecordsFileName is the JSONL file a bundle's records are written to.
const RecordsFileName = "sprints.jsonl"

// Bundle is the in-memory form of an export: manifest plus JSONL records.
type Bundle struct {
	Manifest Manifest
	Records  []RecordEnvelope
}

// SeriesPathFunc names the per-sprint series file for a result, or returns
// "" when none is written.
type SeriesPathFunc func(r sprintzero.Result) string

// BuildBundle assembles the manifest and records for an analyzed batch.
func BuildBundle(src Source, batch *sprintzero.Batch, params detection.Params, seriesPath SeriesPathFunc) *Bundle {
	sum := sha256.Sum256(src.Data)
	name := src.Name
	if name == "" && src.Path != "" {
		name = filepath.Base(src.Path)
	}

	records := make([]RecordEnvelope, 0, len(batch.Results))
	counts := map[string]int{}
	for _, r := range batch.Results {
		d := r.Detection
		counts[d.Decision.String()]++
		env := RecordEnvelope{
			FormatVersion: ExportFormatVersion,
			RecordIndex:   r.Index,
			Position:      r.Position,
			Date:          r.Date,
			DistanceM:     r.Distance,
			Detection:     d,
			Markers: Markers{
				ForwardS:  d.ForwardDuration,
				BackwardS: d.BackwardDuration,
				FinalS:    d.FinalDuration,
				GapS:      d.Gap,
			},
			Meta:        r.Meta,
			SampleCount: len(r.Plot.Time),
			Warnings:    resultWarnings(r),
		}
		if r.Gyro != nil {
			env.DominantAxis = r.Gyro.DominantAxis
		}
		if seriesPath != nil {
			env.SeriesPath = seriesPath(r)
		}
		records = append(records, env)
	}

	return &Bundle{
		Manifest: Manifest{
			FormatVersion:   ExportFormatVersion,
			GeneratedAt:     time.Now().UTC(),
			SourceFile:      src.Path,
			SourceFileName:  name,
			SourceSHA256:    hex.EncodeToString(sum[:]),
			SourceSizeBytes: int64(len(src.Data)),
			RecordsPath:     RecordsFileName,
			RecordCount:     len(records),
			SkippedCount:    len(batch.Skipped),
			DecisionCounts:  counts,
			Params:          params,
			Skipped:         batch.Skipped,
			Structure:       sprintzero.InferSessionStructure(batch.Results),
			Warnings:        BuildWarnings(batch),
			SchemaDescription: SchemaDetails{
				RecordType: "JSONL line per analyzed sprint, in source order",
				Notes: []string{
					"record_index is the 1-based position among analyzed sprints; position is the 0-based place in the source.",
					"Detection times are absolute stream seconds; markers are seconds since the detected sprint start.",
					"decision is one of agree, trust_forward, trust_backward.",
					"Full per-sample series are referenced by series_path rather than inlined.",
				},
			},
		},
		Records: records,
	}
}

func resultWarnings(r sprintzero.Result) []string {
	var out []string
	if r.Detection.LevelFallback {
		out = append(out, fmt.Sprintf("sprint level fell back to %.1f g", r.Detection.SprintLevel))
	}
	if r.Detection.StartFallback {
		out = append(out, "sprint start not detected; timed from first sample")
	}
	return out
}

// BuildWarnings returns deterministic data-quality notes for a batch.
func BuildWarnings(batch *sprintzero.Batch) []string {
	if batch == nil {
		return nil
	}
	warnings := make([]string, 0, 4)
	if len(batch.Results) == 0 {
		warnings = append(warnings, "no analyzable sprints")
	}
	for _, s := range batch.Skipped {
		warnings = append(warnings, fmt.Sprintf("record %d skipped: %s", s.Position, s.Reason))
	}
	for _, r := range batch.Results {
		for _, w := range resultWarnings(r) {
			warnings = append(warnings, fmt.Sprintf("sprint #%d: %s", r.Index, w))
		}
	}
	return dedupeStrings(warnings)
}

// MarshalJSON renders indented JSON with deterministic key order.
func MarshalJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	out = append(out, '\n')
	return out, nil
}

// MarshalJSONL renders record envelopes as JSONL bytes.
func MarshalJSONL(records []RecordEnvelope) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriterSize(&buf, 1<<20)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
