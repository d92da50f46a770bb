package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/config"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

// ResultsFormatVersion identifies the results.json schema.
const ResultsFormatVersion = "sprint_results_v1"

// Options configures the sprint_analyze pipeline.
type Options struct {
	InputPath string
	// Sessions treats InputPath as a session-document export instead of a
	// .sprintzero file.
	Sessions     bool
	SessionLimit int

	OutDir     string
	Format     string // parquet|csv
	Charts     bool
	StorePath  string
	Overwrite  bool
	CopySource bool

	Config *config.Config
	Logger logrus.FieldLogger
}

// BytesOptions configures in-memory pipeline execution (for wasm/browser use).
type BytesOptions struct {
	SourceFileName string
	Data           []byte
	Sessions       bool
	Format         string // parquet|csv
	Charts         bool
	CopySource     bool
	Config         *config.Config
	Logger         logrus.FieldLogger
}

// Result returns generated output paths.
type Result struct {
	OutputDir      string   `json:"output_dir"`
	ManifestPath   string   `json:"manifest_path"`
	RecordsPath    string   `json:"records_path"`
	SourceCopyPath string   `json:"source_copy_path,omitempty"`
	ResultsPath    string   `json:"results_path"`
	SummaryPath    string   `json:"summary_path"`
	FITPath        string   `json:"fit_path,omitempty"`
	SeriesPaths    []string `json:"series_paths,omitempty"`
	ChartPaths     []string `json:"chart_paths,omitempty"`
	RunID          string   `json:"run_id,omitempty"`
	Analyzed       int      `json:"analyzed"`
	Skipped        int      `json:"skipped"`
	Warnings       []string `json:"warnings,omitempty"`
}

// BytesResult contains generated artifacts in-memory.
type BytesResult struct {
	Files    map[string][]byte
	Warnings []string
	Batch    *sprintzero.Batch
}

// ResultsFile is the results.json document.
type ResultsFile struct {
	FormatVersion string                      `json:"format_version"`
	Source        string                      `json:"source"`
	GeneratedAt   time.Time                   `json:"generated_at"`
	Params        detection.Params            `json:"params"`
	Results       []sprintzero.Result         `json:"results"`
	Skipped       []sprintzero.Skip           `json:"skipped,omitempty"`
	Structure     sprintzero.SessionStructure `json:"session_structure"`
	Warnings      []string                    `json:"warnings,omitempty"`
}

// SeriesRow is one acceleration sample of a sprint's series file.
type SeriesRow struct {
	SampleIndex  int
	Timestamp    float64 // absolute stream time, seconds
	TRel         float64 // seconds since detected sprint start
	RawMagnitude float64
	Rolling      float64 // NaN when RollingValid is false
	RollingValid bool
}
