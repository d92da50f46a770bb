// Package detection locates the end of a sprint effort in an acceleration
// curve by scanning a trailing rolling mean from both directions and
// reconciling the two candidates.
package detection

import "fmt"

// Params holds the calibrated heuristics used by the detector. The zero
// value is not usable; start from DefaultParams.
type Params struct {
	// Rolling mean.
	WindowSeconds    float64 `yaml:"window_seconds" json:"window_seconds"`
	MinWindowSamples int     `yaml:"min_window_samples" json:"min_window_samples"`
	MinPeriods       int     `yaml:"min_periods" json:"min_periods"`

	// Sprint level estimate over the mid-section of the recording.
	MidSectionStart float64 `yaml:"mid_section_start" json:"mid_section_start"`
	MidSectionEnd   float64 `yaml:"mid_section_end" json:"mid_section_end"`
	MinMidSamples   int     `yaml:"min_mid_samples" json:"min_mid_samples"`
	FallbackLevel   float64 `yaml:"fallback_level" json:"fallback_level"`

	// StartThreshold is the absolute rolling mean (g) that marks sprint start.
	StartThreshold float64 `yaml:"start_threshold" json:"start_threshold"`

	// ThresholdRatio scales the sprint level into the end-of-sprint threshold.
	ThresholdRatio    float64 `yaml:"threshold_ratio" json:"threshold_ratio"`
	SustainSeconds    float64 `yaml:"sustain_seconds" json:"sustain_seconds"`
	MinSustainSamples int     `yaml:"min_sustain_samples" json:"min_sustain_samples"`

	// AgreementWindow is the largest forward/backward gap (s) that still averages.
	AgreementWindow float64 `yaml:"agreement_window" json:"agreement_window"`

	// MinSprintTimes maps a sprint distance (m) to the earliest time (s) after
	// the first sample at which the forward scan may fire.
	MinSprintTimes       map[int]float64 `yaml:"min_sprint_times" json:"min_sprint_times"`
	DefaultMinSprintTime float64         `yaml:"default_min_sprint_time" json:"default_min_sprint_time"`
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		WindowSeconds:     1.0,
		MinWindowSamples:  10,
		MinPeriods:        5,
		MidSectionStart:   0.2,
		MidSectionEnd:     0.7,
		MinMidSamples:     10,
		FallbackLevel:     5.0,
		StartThreshold:    2.0,
		ThresholdRatio:    0.9,
		SustainSeconds:    0.5,
		MinSustainSamples: 5,
		AgreementWindow:   1.5,
		MinSprintTimes: map[int]float64{
			60:  3,
			70:  4,
			100: 5,
			200: 15,
			290: 25,
			400: 40,
		},
		DefaultMinSprintTime: 5,
	}
}

// MinSprintTime returns the forward-scan holdoff for a distance. Distances
// missing from the table get DefaultMinSprintTime.
func (p Params) MinSprintTime(distance int) float64 {
	if t, ok := p.MinSprintTimes[distance]; ok {
		return t
	}
	return p.DefaultMinSprintTime
}

// Threshold converts a sprint level into the end-of-sprint threshold.
func (p Params) Threshold(level float64) float64 {
	return level * p.ThresholdRatio
}

// Validate reports the first parameter outside its usable range.
func (p Params) Validate() error {
	switch {
	case p.WindowSeconds <= 0:
		return fmt.Errorf("window_seconds must be positive, got %g", p.WindowSeconds)
	case p.MinWindowSamples < 1:
		return fmt.Errorf("min_window_samples must be at least 1, got %d", p.MinWindowSamples)
	case p.MinPeriods < 1:
		return fmt.Errorf("min_periods must be at least 1, got %d", p.MinPeriods)
	case p.MidSectionStart < 0 || p.MidSectionEnd > 1 || p.MidSectionStart >= p.MidSectionEnd:
		return fmt.Errorf("mid section must satisfy 0 <= start < end <= 1, got [%g, %g]", p.MidSectionStart, p.MidSectionEnd)
	case p.MinMidSamples < 1:
		return fmt.Errorf("min_mid_samples must be at least 1, got %d", p.MinMidSamples)
	case p.ThresholdRatio <= 0 || p.ThresholdRatio > 1:
		return fmt.Errorf("threshold_ratio must be in (0, 1], got %g", p.ThresholdRatio)
	case p.SustainSeconds < 0:
		return fmt.Errorf("sustain_seconds must be non-negative, got %g", p.SustainSeconds)
	case p.MinSustainSamples < 1:
		return fmt.Errorf("min_sustain_samples must be at least 1, got %d", p.MinSustainSamples)
	case p.AgreementWindow < 0:
		return fmt.Errorf("agreement_window must be non-negative, got %g", p.AgreementWindow)
	case p.DefaultMinSprintTime < 0:
		return fmt.Errorf("default_min_sprint_time must be non-negative, got %g", p.DefaultMinSprintTime)
	}
	for d, t := range p.MinSprintTimes {
		if d <= 0 || t < 0 {
			return fmt.Errorf("min_sprint_times entry %d: %g is invalid", d, t)
		}
	}
	return nil
}
