package llmexport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

// ExportFile analyzes a .sprintzero file and writes an LLM-friendly bundle.
// Output files:
//   - manifest.json
//   - sprints.jsonl
//   - source.sprintzero (optional)
func ExportFile(ctx context.Context, inputPath, outputDir string, opts ExportOptions) (*ExportResult, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("read sprintzero file: %w", err)
	}
	records, err := sprintzero.ParseFile(data)
	if err != nil {
		return nil, err
	}
	params := detection.DefaultParams()
	if opts.Params != nil {
		params = *opts.Params
	}
	batch, err := sprintzero.AnalyzeRecords(ctx, records, sprintzero.Options{Params: &params})
	if err != nil {
		return nil, err
	}

	bundle := BuildBundle(Source{Path: inputPath, Data: data}, batch, params, nil)
	return bundle.Write(outputDir, opts)
}

// Write stores the bundle under outputDir, optionally copying the source.
func (b *Bundle) Write(outputDir string, opts ExportOptions) (*ExportResult, error) {
	if err := ensureOutputDir(outputDir, opts.Overwrite); err != nil {
		return nil, err
	}

	recordsPath := filepath.Join(outputDir, RecordsFileName)
	if err := writeJSONL(recordsPath, b.Records); err != nil {
		return nil, fmt.Errorf("write %s: %w", RecordsFileName, err)
	}

	manifestPath := filepath.Join(outputDir, "manifest.json")
	if err := writeJSON(manifestPath, b.Manifest); err != nil {
		return nil, fmt.Errorf("write manifest.json: %w", err)
	}

	sourceCopyPath := ""
	if opts.CopySourceFile && b.Manifest.SourceFile != "" {
		sourceCopyPath = filepath.Join(outputDir, "source.sprintzero")
		if err := copyFile(b.Manifest.SourceFile, sourceCopyPath); err != nil {
			return nil, fmt.Errorf("copy source file: %w", err)
		}
	}

	return &ExportResult{
		OutputDir:       outputDir,
		ManifestPath:    manifestPath,
		RecordsPath:     recordsPath,
		SourceCopyPath:  sourceCopyPath,
		RecordCount:     len(b.Records),
		SkippedCount:    b.Manifest.SkippedCount,
		SourceSHA256:    b.Manifest.SourceSHA256,
		SourceSizeBytes: b.Manifest.SourceSizeBytes,
	}, nil
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
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

func writeJSONL(path string, records []RecordEnvelope) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewWriterSize(f, 1<<20)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return buf.Flush()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
