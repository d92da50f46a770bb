package llmexport

import (
	"time"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

const (
	// ExportFormatVersion identifies the on-disk schema for LLM exports.
	ExportFormatVersion = "sprint_llm_jsonl_v1"
)

// ExportOptions controls export behavior.
type ExportOptions struct {
	// Overwrite allows writing into a non-empty output directory.
	Overwrite bool

	// CopySourceFile writes a byte-for-byte copy of the source file to the output directory.
	CopySourceFile bool

	// Params overrides the detection parameters; nil uses the defaults.
	Params *detection.Params
}

// ExportResult describes generated files.
type ExportResult struct {
	OutputDir       string `json:"output_dir"`
	ManifestPath    string `json:"manifest_path"`
	RecordsPath     string `json:"records_path"`
	SourceCopyPath  string `json:"source_copy_path,omitempty"`
	RecordCount     int    `json:"record_count"`
	SkippedCount    int    `json:"skipped_count"`
	SourceSHA256    string `json:"source_sha256"`
	SourceSizeBytes int64  `json:"source_size_bytes"`
}

// Source identifies the input a bundle was derived from.
type Source struct {
	Path string
	Name string
	Data []byte
}

// Manifest captures export metadata and pointers to exported files.
type Manifest struct {
	FormatVersion     string                      `json:"format_version"`
	GeneratedAt       time.Time                   `json:"generated_at"`
	SourceFile        string                      `json:"source_file,omitempty"`
	SourceFileName    string                      `json:"source_file_name"`
	SourceSHA256      string                      `json:"source_sha256"`
	SourceSizeBytes   int64                       `json:"source_size_bytes"`
	RecordsPath       string                      `json:"records_path"`
	RecordCount       int                         `json:"record_count"`
	SkippedCount      int                         `json:"skipped_count"`
	DecisionCounts    map[string]int              `json:"decision_counts"`
	Params            detection.Params            `json:"params"`
	Skipped           []sprintzero.Skip           `json:"skipped,omitempty"`
	Structure         sprintzero.SessionStructure `json:"session_structure"`
	Warnings          []string                    `json:"warnings,omitempty"`
	SchemaDescription SchemaDetails               `json:"schema_description"`
}

// SchemaDetails documents the record shape for downstream applications.
type SchemaDetails struct {
	RecordType string   `json:"record_type"`
	Notes      []string `json:"notes"`
}

// RecordEnvelope is one JSONL line in sprints.jsonl, in result order.
type RecordEnvelope struct {
	FormatVersion string                `json:"format_version"`
	RecordIndex   int                   `json:"record_index"`
	Position      int                   `json:"position"`
	Date          string                `json:"date"`
	DistanceM     int                   `json:"distance_m"`
	Detection     detection.Result      `json:"detection"`
	Markers       Markers               `json:"markers"`
	Meta          sprintzero.SprintMeta `json:"meta"`
	SampleCount   int                   `json:"sample_count"`
	DominantAxis  string                `json:"gyro_dominant_axis,omitempty"`
	SeriesPath    string                `json:"series_path,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// Markers are the detection times relative to sprint start, in seconds.
type Markers struct {
	ForwardS  float64 `json:"forward_s"`
	BackwardS float64 `json:"backward_s"`
	FinalS    float64 `json:"final_s"`
	GapS      float64 `json:"gap_s"`
}
