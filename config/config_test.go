package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/sprint-analyzer/detection"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, detection.DefaultParams(), cfg.Detection)
	assert.Equal(t, "parquet", cfg.Output.Format)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyzer.yaml")
	body := `
workers: 3
detection:
  threshold_ratio: 0.85
  agreement_window: 2
  min_sprint_times:
    150: 10
    200: 16
output:
  format: csv
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 0.85, cfg.Detection.ThresholdRatio)
	assert.Equal(t, 2.0, cfg.Detection.AgreementWindow)
	assert.Equal(t, 1.0, cfg.Detection.WindowSeconds, "omitted fields keep defaults")
	assert.Equal(t, 10.0, cfg.Detection.MinSprintTime(150))
	assert.Equal(t, 16.0, cfg.Detection.MinSprintTime(200))
	assert.Equal(t, 40.0, cfg.Detection.MinSprintTime(400), "default table entries survive")
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.True(t, cfg.Output.Charts)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	_, err := Load(write("analyzer.json", "{}"))
	assert.ErrorContains(t, err, "extension")

	_, err = Load(write("typo.yaml", "detection:\n  treshold_ratio: 0.8\n"))
	assert.Error(t, err)

	_, err = Load(write("ratio.yaml", "detection:\n  threshold_ratio: 1.5\n"))
	assert.ErrorContains(t, err, "threshold_ratio")

	_, err = Load(write("mid.yml", "detection:\n  mid_section_start: 0.8\n"))
	assert.ErrorContains(t, err, "mid section")

	_, err = Load(write("format.yaml", "output:\n  format: xlsx\n"))
	assert.ErrorContains(t, err, "output.format")

	_, err = Load(write("level.yaml", "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "log.level")

	big := write("big.yaml", "# "+strings.Repeat("x", maxFileSize))
	_, err = Load(big)
	assert.ErrorContains(t, err, "too large")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.WithField("position", 4).Warn("sprint analysis failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "sprint analysis failed", entry["msg"])
	assert.Equal(t, float64(4), entry["position"])

	_, err = NewLogger(LogConfig{Level: "nope"}, &buf)
	assert.Error(t, err)
}
