package llmexport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/curve"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

func buildTestSprintZero(t *testing.T) []byte {
	t.Helper()

	accel := make([]curve.Sample, 1500)
	for i := range accel {
		ts := float64(i) * 0.01
		mag := 1.5
		switch {
		case ts < 0.995:
			mag = 1.0
		case ts < 9.995:
			mag = 6.0
		}
		accel[i] = curve.Sample{Timestamp: ts, Z: mag}
	}
	encoded, err := curve.EncodeJSONCurve(accel)
	if err != nil {
		t.Fatalf("encode curve: %v", err)
	}

	doc := map[string]any{
		"sessions": []any{
			map[string]any{
				"date": "2025-06-01T09:00:00.000Z",
				"sprints": []any{
					map[string]any{"distance": 100, "accelerationCurve": encoded, "gyroscopeCurve": encoded},
					map[string]any{"distance": 40, "accelerationCurve": encoded, "gyroscopeCurve": encoded},
				},
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

func TestExportFileWritesBundle(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "export.sprintzero")
	if err := os.WriteFile(inputPath, buildTestSprintZero(t), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	outDir := filepath.Join(tmp, "bundle")
	result, err := ExportFile(context.Background(), inputPath, outDir, ExportOptions{
		Overwrite:      true,
		CopySourceFile: true,
	})
	if err != nil {
		t.Fatalf("ExportFile error: %v", err)
	}

	if result.RecordCount != 1 {
		t.Fatalf("expected 1 record, got %d", result.RecordCount)
	}
	if result.SkippedCount != 1 {
		t.Fatalf("expected 1 skipped record, got %d", result.SkippedCount)
	}
	if _, err := os.Stat(result.SourceCopyPath); err != nil {
		t.Fatalf("source copy missing: %v", err)
	}

	manifestData, err := os.ReadFile(result.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.FormatVersion != ExportFormatVersion {
		t.Fatalf("unexpected format version: %q", manifest.FormatVersion)
	}
	if manifest.SourceFileName != "export.sprintzero" {
		t.Fatalf("unexpected source file name: %q", manifest.SourceFileName)
	}
	if manifest.DecisionCounts["agree"] != 1 {
		t.Fatalf("expected one agreeing sprint, got %v", manifest.DecisionCounts)
	}
	if len(manifest.SourceSHA256) != 64 {
		t.Fatalf("unexpected sha256: %q", manifest.SourceSHA256)
	}

	f, err := os.Open(result.RecordsPath)
	if err != nil {
		t.Fatalf("open records: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	lines := 0
	for scanner.Scan() {
		var env RecordEnvelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			t.Fatalf("decode line %d: %v", lines+1, err)
		}
		if env.RecordIndex != 1 || env.Position != 0 {
			t.Fatalf("unexpected index/position: %d/%d", env.RecordIndex, env.Position)
		}
		if env.Date != "2025-06-01" {
			t.Fatalf("unexpected date: %q", env.Date)
		}
		if env.Detection.Decision != detection.Agree {
			t.Fatalf("unexpected decision: %v", env.Detection.Decision)
		}
		if env.Markers.FinalS < 8.8 || env.Markers.FinalS > 9.0 {
			t.Fatalf("unexpected final duration: %.3f", env.Markers.FinalS)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan records: %v", err)
	}
	if lines != 1 {
		t.Fatalf("expected 1 JSONL line, got %d", lines)
	}
}

func TestExportFileRefusesNonEmptyDir(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "export.sprintzero")
	if err := os.WriteFile(inputPath, buildTestSprintZero(t), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	outDir := filepath.Join(tmp, "bundle")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ExportFile(context.Background(), inputPath, outDir, ExportOptions{})
	if err == nil || !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("expected non-empty directory error, got %v", err)
	}
}

func TestBuildWarnings(t *testing.T) {
	if got := BuildWarnings(&sprintzero.Batch{}); len(got) != 1 || got[0] != "no analyzable sprints" {
		t.Fatalf("unexpected warnings for empty batch: %v", got)
	}

	batch := &sprintzero.Batch{
		Results: []sprintzero.Result{
			{Index: 1, Detection: detection.Result{LevelFallback: true, SprintLevel: 2}},
		},
		Skipped: []sprintzero.Skip{
			{Position: 3, Reason: "sprint skipped: no curve data"},
			{Position: 3, Reason: "sprint skipped: no curve data"},
		},
	}
	got := BuildWarnings(batch)
	want := []string{
		"record 3 skipped: sprint skipped: no curve data",
		"sprint #1: sprint level fell back to 2.0 g",
	}
	if len(got) != len(want) {
		t.Fatalf("warnings = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("warning %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMarshalJSONLOneLinePerRecord(t *testing.T) {
	bundle := BuildBundle(Source{Name: "mem.sprintzero", Data: []byte("{}")}, &sprintzero.Batch{
		Results: []sprintzero.Result{
			{Index: 1, Distance: 100, Detection: detection.Result{Decision: detection.Agree}},
			{Index: 2, Distance: 200, Detection: detection.Result{Decision: detection.TrustBackward}},
		},
	}, detection.DefaultParams(), func(r sprintzero.Result) string {
		return "series/sprint_0" + string(rune('0'+r.Index)) + ".csv"
	})

	out, err := MarshalJSONL(bundle.Records)
	if err != nil {
		t.Fatalf("MarshalJSONL error: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !bytes.Contains(lines[1], []byte(`"series_path":"series/sprint_02.csv"`)) {
		t.Fatalf("missing series path in %s", lines[1])
	}
	if bundle.Manifest.DecisionCounts["trust_backward"] != 1 {
		t.Fatalf("unexpected decision counts: %v", bundle.Manifest.DecisionCounts)
	}
	if bundle.Manifest.SourceFile != "" {
		t.Fatalf("in-memory bundle should carry no source path, got %q", bundle.Manifest.SourceFile)
	}
}
