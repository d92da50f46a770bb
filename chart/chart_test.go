package chart

import (
	"bytes"
	"testing"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

func sampleResult(withGyro bool) sprintzero.Result {
	r := sprintzero.Result{
		Index:    2,
		Date:     "2025-06-01",
		Distance: 100,
		Detection: detection.Result{
			Decision:         detection.TrustBackward,
			ForwardDuration:  9.1,
			BackwardDuration: 11.0,
			FinalDuration:    11.0,
			Gap:              1.9,
			SprintLevel:      6,
		},
		Plot: sprintzero.PlotSeries{
			Time:         []float64{-0.2, -0.1, 0, 0.1},
			Rolling:      []detection.Mean{{}, {Value: 1.5, Valid: true}, {Value: 3, Valid: true}, {Value: 5.5, Valid: true}},
			Magnitude:    []float64{1, 2, 4, 6},
			SprintLevel:  6,
			Threshold:    5.4,
			ForwardTime:  9.1,
			BackwardTime: 11.0,
			FinalTime:    11.0,
		},
	}
	if withGyro {
		r.Gyro = &sprintzero.GyroSeries{
			Time:         []float64{0, 0.1},
			X:            []float64{0, 0},
			Y:            []float64{1, -1},
			Z:            []float64{0, 0},
			DominantAxis: "y",
		}
	}
	return r
}

func TestRenderWritesDetectionPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(false), Options{}))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "rolling mean")
	assert.Contains(t, html, "threshold")
	assert.Contains(t, html, "trust_backward")
	assert.NotContains(t, html, "dominant axis")
}

func TestRenderIncludesGyroscopeWhenPresent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(true), Options{Height: "400px"}))
	assert.Contains(t, buf.String(), "dominant axis: y")
	assert.Contains(t, buf.String(), "400px")
}

func TestDetectionChartMarksAbsentRollingSlots(t *testing.T) {
	line := DetectionChart(sampleResult(false), Options{})
	require.Len(t, line.MultiSeries, 2)

	rolling, ok := line.MultiSeries[1].Data.([]opts.LineData)
	require.True(t, ok)
	require.Len(t, rolling, 4)
	assert.Equal(t, []interface{}{-0.2, missing}, rolling[0].Value)
	assert.Equal(t, []interface{}{0.0, 3.0}, rolling[2].Value)
}
