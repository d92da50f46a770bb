package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/chart"
	"github.com/lucasjlepore/sprint-analyzer/config"
	"github.com/lucasjlepore/sprint-analyzer/detection"
	"github.com/lucasjlepore/sprint-analyzer/llmexport"
)

const (
	resultsFileName = "results.json"
	summaryFileName = "summary.txt"
	fitFileName     = "sprints.fit"
	sourceCopyName  = "source.sprintzero"
)

// analysis is the format-independent outcome shared by Run and RunBytes.
type analysis struct {
	source   string
	params   detection.Params
	batch    *sprintzero.Batch
	bundle   *llmexport.Bundle
	warnings []string
}

// Run analyzes an input file and writes every artifact under opts.OutDir.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.InputPath) == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := loggerOrDiscard(opts.Logger)

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	records, err := loadRecords(ctx, opts.InputPath, data, opts.Sessions, opts.SessionLimit)
	if err != nil {
		return nil, err
	}

	a, err := analyze(ctx, records, llmexport.Source{Path: opts.InputPath, Data: data}, format, cfg, logger)
	if err != nil {
		return nil, err
	}

	exported, err := a.bundle.Write(opts.OutDir, llmexport.ExportOptions{
		Overwrite:      opts.Overwrite,
		CopySourceFile: opts.CopySource,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		OutputDir:      opts.OutDir,
		ManifestPath:   exported.ManifestPath,
		RecordsPath:    exported.RecordsPath,
		SourceCopyPath: exported.SourceCopyPath,
		ResultsPath:    filepath.Join(opts.OutDir, resultsFileName),
		SummaryPath:    filepath.Join(opts.OutDir, summaryFileName),
		Analyzed:       len(a.batch.Results),
		Skipped:        len(a.batch.Skipped),
		Warnings:       a.warnings,
	}

	if err := writeJSON(res.ResultsPath, a.resultsFile()); err != nil {
		return nil, fmt.Errorf("write %s: %w", resultsFileName, err)
	}
	if err := os.WriteFile(res.SummaryPath, []byte(a.summary()), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", summaryFileName, err)
	}

	if len(a.batch.Results) > 0 {
		if err := os.MkdirAll(filepath.Join(opts.OutDir, "series"), 0o755); err != nil {
			return nil, fmt.Errorf("create series directory: %w", err)
		}
	}
	for _, r := range a.batch.Results {
		path := filepath.Join(opts.OutDir, seriesPath(r, format))
		rows := buildSeriesRows(r)
		switch format {
		case "csv":
			err = writeSeriesCSVFile(path, rows)
		case "parquet":
			err = writeSeriesParquet(path, rows)
		}
		if err != nil {
			return nil, fmt.Errorf("write series for sprint #%d: %w", r.Index, err)
		}
		res.SeriesPaths = append(res.SeriesPaths, path)
	}

	if len(a.batch.Results) > 0 {
		fitData, err := encodeSprintFIT(a.batch.Results)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", fitFileName, err)
		}
		res.FITPath = filepath.Join(opts.OutDir, fitFileName)
		if err := os.WriteFile(res.FITPath, fitData, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", fitFileName, err)
		}
	}

	if opts.Charts && len(a.batch.Results) > 0 {
		if err := os.MkdirAll(filepath.Join(opts.OutDir, "charts"), 0o755); err != nil {
			return nil, fmt.Errorf("create charts directory: %w", err)
		}
		for _, r := range a.batch.Results {
			path := filepath.Join(opts.OutDir, chartPath(r))
			if err := writeChartFile(path, r); err != nil {
				return nil, fmt.Errorf("write chart for sprint #%d: %w", r.Index, err)
			}
			res.ChartPaths = append(res.ChartPaths, path)
		}
	}

	if opts.StorePath != "" {
		runID, err := saveRun(ctx, opts.StorePath, a.source, a.params, a.batch)
		if err != nil {
			return nil, err
		}
		res.RunID = runID
		logger.WithField("run_id", runID).Info("run persisted")
	}

	logger.WithFields(logrus.Fields{
		"analyzed": res.Analyzed,
		"skipped":  res.Skipped,
		"out_dir":  opts.OutDir,
	}).Info("pipeline finished")
	return res, nil
}

// RunBytes produces the Run artifacts in memory, keyed by relative path.
// Store persistence is not available here.
func RunBytes(ctx context.Context, opts BytesOptions) (*BytesResult, error) {
	if len(opts.Data) == 0 {
		return nil, fmt.Errorf("input data is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	name := strings.TrimSpace(opts.SourceFileName)
	if name == "" {
		name = "input.sprintzero"
	}

	records, err := loadRecords(ctx, name, opts.Data, opts.Sessions, 0)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if format == "parquet" && !parquetSupported {
		warnings = append(warnings, "parquet output is unavailable in this build; series written as csv")
		format = "csv"
	}

	a, err := analyze(ctx, records, llmexport.Source{Name: name, Data: opts.Data}, format, cfg, loggerOrDiscard(opts.Logger))
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, a.warnings...)

	files := map[string][]byte{}
	if files["manifest.json"], err = llmexport.MarshalJSON(a.bundle.Manifest); err != nil {
		return nil, fmt.Errorf("marshal manifest.json: %w", err)
	}
	if files[llmexport.RecordsFileName], err = llmexport.MarshalJSONL(a.bundle.Records); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", llmexport.RecordsFileName, err)
	}
	if files[resultsFileName], err = llmexport.MarshalJSON(a.resultsFile()); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", resultsFileName, err)
	}
	files[summaryFileName] = []byte(a.summary())

	for _, r := range a.batch.Results {
		rows := buildSeriesRows(r)
		var content []byte
		switch format {
		case "csv":
			content, err = marshalSeriesCSV(rows)
		case "parquet":
			content, err = marshalSeriesParquet(rows)
		}
		if err != nil {
			return nil, fmt.Errorf("series for sprint #%d: %w", r.Index, err)
		}
		files[seriesPath(r, format)] = content

		if opts.Charts {
			var buf bytes.Buffer
			if err := chart.Render(&buf, r, chart.Options{}); err != nil {
				return nil, fmt.Errorf("chart for sprint #%d: %w", r.Index, err)
			}
			files[chartPath(r)] = buf.Bytes()
		}
	}

	if len(a.batch.Results) > 0 {
		fitData, err := encodeSprintFIT(a.batch.Results)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", fitFileName, err)
		}
		files[fitFileName] = fitData
	}
	if opts.CopySource {
		files[sourceCopyName] = append([]byte(nil), opts.Data...)
	}

	return &BytesResult{
		Files:    files,
		Warnings: warnings,
		Batch:    a.batch,
	}, nil
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "parquet"
	}
	if format != "parquet" && format != "csv" {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	return format, nil
}

func loggerOrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}

func loadRecords(ctx context.Context, name string, data []byte, sessions bool, limit int) ([]sprintzero.SprintRecord, error) {
	if !sessions {
		records, err := sprintzero.ParseFile(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(name), err)
		}
		return records, nil
	}
	records, err := sprintzero.SessionRecords(ctx, bytesSessionSource(data), limit)
	if err != nil {
		return nil, fmt.Errorf("load sessions from %s: %w", filepath.Base(name), err)
	}
	return records, nil
}

// bytesSessionSource serves session documents from an in-memory JSON array.
type bytesSessionSource []byte

func (b bytesSessionSource) Sessions(ctx context.Context, limit int) ([]sprintzero.SessionDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []sprintzero.SessionDocument
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("decode session documents: %w", err)
	}
	return sprintzero.SortSessions(docs, limit), nil
}

func analyze(ctx context.Context, records []sprintzero.SprintRecord, src llmexport.Source, format string, cfg *config.Config, logger logrus.FieldLogger) (*analysis, error) {
	params := cfg.Detection
	batch, err := sprintzero.AnalyzeRecords(ctx, records, sprintzero.Options{
		Params:  &params,
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	name := src.Name
	if name == "" {
		name = filepath.Base(src.Path)
	}
	bundle := llmexport.BuildBundle(src, batch, params, func(r sprintzero.Result) string {
		return seriesPath(r, format)
	})
	return &analysis{
		source:   name,
		params:   params,
		batch:    batch,
		bundle:   bundle,
		warnings: bundle.Manifest.Warnings,
	}, nil
}

func (a *analysis) resultsFile() ResultsFile {
	results := a.batch.Results
	if results == nil {
		results = []sprintzero.Result{}
	}
	return ResultsFile{
		FormatVersion: ResultsFormatVersion,
		Source:        a.source,
		GeneratedAt:   a.bundle.Manifest.GeneratedAt,
		Params:        a.params,
		Results:       results,
		Skipped:       a.batch.Skipped,
		Structure:     sprintzero.InferSessionStructure(a.batch.Results),
		Warnings:      a.warnings,
	}
}

func (a *analysis) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n\n", a.source)
	b.WriteString(sprintzero.BuildNotes(a.batch.Results))
	b.WriteByte('\n')
	if structure := sprintzero.InferSessionStructure(a.batch.Results); len(structure.Sessions) > 0 {
		b.WriteString("\nSessions:\n")
		for _, s := range structure.Sessions {
			fmt.Fprintf(&b, "- %s: %s (agreement %.0f%%)\n", s.Date, s.CanonicalLabel, s.Confidence*100)
		}
	}
	if len(a.batch.Skipped) > 0 {
		b.WriteString("\nSkipped:\n")
		for _, s := range a.batch.Skipped {
			fmt.Fprintf(&b, "- record %d (%s, %d m): %s\n", s.Position, s.Date, s.Distance, s.Reason)
		}
	}
	return b.String()
}

func seriesPath(r sprintzero.Result, format string) string {
	return fmt.Sprintf("series/sprint_%02d.%s", r.Index, format)
}

func chartPath(r sprintzero.Result) string {
	return fmt.Sprintf("charts/sprint_%02d.html", r.Index)
}

// buildSeriesRows flattens a result's plot series. Absolute timestamps are
// recovered from the detected sprint start.
func buildSeriesRows(r sprintzero.Result) []SeriesRow {
	p := r.Plot
	start := r.Detection.SprintStartTime
	rows := make([]SeriesRow, len(p.Time))
	for i, t := range p.Time {
		row := SeriesRow{
			SampleIndex:  i,
			Timestamp:    t + start,
			TRel:         t,
			RawMagnitude: p.Magnitude[i],
			Rolling:      math.NaN(),
		}
		if i < len(p.Rolling) && p.Rolling[i].Valid {
			row.Rolling = p.Rolling[i].Value
			row.RollingValid = true
		}
		rows[i] = row
	}
	return rows
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var seriesHeader = []string{"sample_index", "timestamp", "t_rel", "raw_magnitude", "rolling", "rolling_valid"}

func writeSeriesCSV(out io.Writer, rows []SeriesRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(seriesHeader); err != nil {
		return err
	}
	for _, s := range rows {
		rolling := ""
		if s.RollingValid {
			rolling = formatFloat(s.Rolling)
		}
		row := []string{
			strconv.Itoa(s.SampleIndex),
			formatFloat(s.Timestamp),
			formatFloat(s.TRel),
			formatFloat(s.RawMagnitude),
			rolling,
			strconv.FormatBool(s.RollingValid),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeSeriesCSVFile(path string, rows []SeriesRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeSeriesCSV(f, rows)
}

func marshalSeriesCSV(rows []SeriesRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSeriesCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeChartFile(path string, r sprintzero.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return chart.Render(f, r, chart.Options{})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
