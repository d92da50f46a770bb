package detection

import (
	"errors"

	"github.com/lucasjlepore/sprint-analyzer/curve"
)

// ErrEmptyCurve is returned when there is nothing to analyze.
var ErrEmptyCurve = errors.New("detection: empty acceleration curve")

// Result is the outcome of one bidirectional detection. Times are absolute
// stream times; durations are relative to SprintStartTime.
type Result struct {
	ForwardTime      float64  `json:"forward_time"`
	BackwardTime     float64  `json:"backward_time"`
	FinalTime        float64  `json:"final_time"`
	Gap              float64  `json:"gap"`
	Decision         Decision `json:"decision"`
	Threshold        float64  `json:"threshold"`
	SprintLevel      float64  `json:"sprint_level"`
	SprintStartTime  float64  `json:"sprint_start_time"`
	SprintStartIndex int      `json:"sprint_start_index"`

	ForwardDuration  float64 `json:"forward_duration"`
	BackwardDuration float64 `json:"backward_duration"`
	FinalDuration    float64 `json:"final_duration"`

	Rate           float64 `json:"rate"`
	Window         int     `json:"window"`
	SustainSamples int     `json:"sustain_samples"`
	MinSprintTime  float64 `json:"min_sprint_time"`
	LevelFallback  bool    `json:"level_fallback,omitempty"`
	StartFallback  bool    `json:"start_fallback,omitempty"`
}

// Detection bundles the result with the rolling series it was derived from.
type Detection struct {
	Result  Result
	Rolling Rolling
}

// Detect runs the full bidirectional detection over an acceleration curve.
// It is a pure function of its inputs.
func Detect(accel curve.Curve, distance int, p Params) (*Detection, error) {
	if accel.Len() == 0 {
		return nil, ErrEmptyCurve
	}
	ts := accel.Timestamps()
	rolling := RollingMean(ts, accel.Magnitudes(), p)

	level, levelFallback := SprintLevel(ts, rolling.Means, p)
	start, startIdx, startFallback := SprintStart(ts, rolling.Means, p)

	threshold := p.Threshold(level)
	minTime := p.MinSprintTime(distance)
	sustain := p.SustainSamples(rolling.Rate)

	forward := ScanForward(ts, rolling.Means, threshold, ts[0]+minTime, sustain)
	backward := ScanBackward(ts, rolling.Means, threshold)
	final, decision, gap := Reconcile(forward, backward, p.AgreementWindow)

	return &Detection{
		Result: Result{
			ForwardTime:      forward,
			BackwardTime:     backward,
			FinalTime:        final,
			Gap:              gap,
			Decision:         decision,
			Threshold:        threshold,
			SprintLevel:      level,
			SprintStartTime:  start,
			SprintStartIndex: startIdx,
			ForwardDuration:  forward - start,
			BackwardDuration: backward - start,
			FinalDuration:    final - start,
			Rate:             rolling.Rate,
			Window:           rolling.Window,
			SustainSamples:   sustain,
			MinSprintTime:    minTime,
			LevelFallback:    levelFallback,
			StartFallback:    startFallback,
		},
		Rolling: rolling,
	}, nil
}
