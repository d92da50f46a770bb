// Package sprintzero analyzes recorded sprints: it decodes each record's
// inertial curves, detects where the sprint effort ended and assembles
// plot-ready results for presentation layers.
package sprintzero

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/lucasjlepore/sprint-analyzer/curve"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

const (
	// MinDistance is the shortest sprint (m) worth analyzing.
	MinDistance = 60
	// MinAccelSamples is the acceleration sample count below which a record is skipped.
	MinAccelSamples = 100
	// MinGyroSamples must be exceeded for a gyroscope series to be built.
	MinGyroSamples = 100
)

var (
	// ErrSkipped marks records left out of a batch by policy. It is wrapped
	// by ErrNoCurves, ErrTooShort and ErrInsufficientData.
	ErrSkipped          = errors.New("sprint skipped")
	ErrNoCurves         = fmt.Errorf("%w: no curve data", ErrSkipped)
	ErrTooShort         = fmt.Errorf("%w: distance below %d m", ErrSkipped, MinDistance)
	ErrInsufficientData = fmt.Errorf("%w: insufficient acceleration data", ErrSkipped)
)

// Result is the analysis of one sprint record.
type Result struct {
	// Index is the 1-based position among a batch's analyzed results; zero
	// when the record was analyzed on its own.
	Index     int              `json:"index"`
	Position  int              `json:"position"`
	Date      string           `json:"date"`
	Distance  int              `json:"distance"`
	Detection detection.Result `json:"detection"`
	Meta      SprintMeta       `json:"meta"`
	Plot      PlotSeries       `json:"plot"`
	Gyro      *GyroSeries      `json:"gyro,omitempty"`
}

// PlotSeries is the chartable view of a detection. Time and the marker
// times are relative to the detected sprint start.
type PlotSeries struct {
	Time         []float64        `json:"t"`
	Rolling      []detection.Mean `json:"rolling"`
	Magnitude    []float64        `json:"magnitude"`
	SprintLevel  float64          `json:"sprint_level"`
	Threshold    float64          `json:"threshold"`
	ForwardTime  float64          `json:"fwd_time"`
	BackwardTime float64          `json:"bwd_time"`
	FinalTime    float64          `json:"final_time"`
}

// GyroSeries holds the rotation axes on the same relative time base.
type GyroSeries struct {
	Time         []float64 `json:"t"`
	X            []float64 `json:"x"`
	Y            []float64 `json:"y"`
	Z            []float64 `json:"z"`
	DominantAxis string    `json:"dominant_axis"`
}

// Options configures batch analysis. The zero value uses DefaultParams,
// one worker per CPU and no logging.
type Options struct {
	Params  *detection.Params
	Workers int
	Logger  logrus.FieldLogger
}

func (o Options) params() detection.Params {
	if o.Params == nil {
		return detection.DefaultParams()
	}
	return *o.Params
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Skip records why a record produced no result.
type Skip struct {
	Position int    `json:"position"`
	Date     string `json:"date"`
	Distance int    `json:"distance"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// Batch is the outcome of analyzing many records. Results keep source order.
type Batch struct {
	Results []Result `json:"results"`
	Skipped []Skip   `json:"skipped,omitempty"`
}

// AnalyzeRecord runs detection on one record. It shares no state with other
// calls and is safe to run concurrently. Policy skips wrap ErrSkipped;
// undecodable curves wrap curve.ErrDecode.
func AnalyzeRecord(rec SprintRecord, p detection.Params) (*Result, error) {
	if !rec.HasCurves() {
		return nil, ErrNoCurves
	}
	if rec.Distance < MinDistance {
		return nil, fmt.Errorf("%w (got %d m)", ErrTooShort, rec.Distance)
	}
	accel, gyro, err := rec.Curves()
	if err != nil {
		return nil, err
	}
	if accel.Len() < MinAccelSamples {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrInsufficientData, accel.Len(), MinAccelSamples)
	}

	d, err := detection.Detect(accel, rec.Distance, p)
	if err != nil {
		return nil, fmt.Errorf("detect sprint end: %w", err)
	}

	res := &Result{
		Position:  rec.Position,
		Date:      rec.Date,
		Distance:  rec.Distance,
		Detection: d.Result,
		Meta:      rec.Meta,
		Plot:      buildPlotSeries(accel, d),
	}
	if gyro.Len() > MinGyroSamples {
		res.Gyro = buildGyroSeries(gyro, d.Result.SprintStartTime)
	}
	return res, nil
}

func buildPlotSeries(accel curve.Curve, d *detection.Detection) PlotSeries {
	r := d.Result
	return PlotSeries{
		Time:         relativeTimes(accel, r.SprintStartTime),
		Rolling:      d.Rolling.Means,
		Magnitude:    accel.Magnitudes(),
		SprintLevel:  r.SprintLevel,
		Threshold:    r.Threshold,
		ForwardTime:  r.ForwardDuration,
		BackwardTime: r.BackwardDuration,
		FinalTime:    r.FinalDuration,
	}
}

func buildGyroSeries(gyro curve.Curve, start float64) *GyroSeries {
	x, y, z := gyro.Axes()
	return &GyroSeries{
		Time:         relativeTimes(gyro, start),
		X:            x,
		Y:            y,
		Z:            z,
		DominantAxis: dominantAxis(x, y, z),
	}
}

// dominantAxis labels the axis with the largest population variance. Ties
// go to x, then y.
func dominantAxis(x, y, z []float64) string {
	vx := stat.PopVariance(x, nil)
	vy := stat.PopVariance(y, nil)
	vz := stat.PopVariance(z, nil)
	switch {
	case vx >= vy && vx >= vz:
		return "x"
	case vy >= vz:
		return "y"
	default:
		return "z"
	}
}

func relativeTimes(c curve.Curve, origin float64) []float64 {
	out := make([]float64, c.Len())
	for i, s := range c.Samples {
		out[i] = s.Timestamp - origin
	}
	return out
}

type outcome struct {
	result *Result
	err    error
}

// AnalyzeRecords analyzes every record across a bounded worker pool. A
// record that is skipped or fails to decode is reported in Batch.Skipped
// and never affects its siblings. The only error returned is the
// context's.
func AnalyzeRecords(ctx context.Context, records []SprintRecord, opts Options) (*Batch, error) {
	params := opts.params()
	log := opts.logger()

	outcomes := make([]outcome, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := AnalyzeRecord(rec, params)
			outcomes[i] = outcome{result: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &Batch{Results: make([]Result, 0, len(records))}
	for i, o := range outcomes {
		rec := records[i]
		if o.err != nil {
			entry := log.WithFields(logrus.Fields{
				"position": rec.Position,
				"distance": rec.Distance,
				"reason":   o.err.Error(),
			})
			if errors.Is(o.err, ErrSkipped) {
				entry.Debug("sprint skipped")
			} else {
				entry.Warn("sprint analysis failed")
			}
			batch.Skipped = append(batch.Skipped, Skip{
				Position: rec.Position,
				Date:     rec.Date,
				Distance: rec.Distance,
				Reason:   o.err.Error(),
				Err:      o.err,
			})
			continue
		}
		r := *o.result
		r.Index = len(batch.Results) + 1
		batch.Results = append(batch.Results, r)
	}
	log.WithFields(logrus.Fields{
		"records":  len(records),
		"analyzed": len(batch.Results),
		"skipped":  len(batch.Skipped),
	}).Info("batch analyzed")
	return batch, nil
}

// AnalyzeFile reads a .sprintzero file and analyzes its sprints.
func AnalyzeFile(ctx context.Context, path string, opts Options) (*Batch, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return AnalyzeRecords(ctx, records, opts)
}
