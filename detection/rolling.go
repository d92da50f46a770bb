package detection

import (
	"encoding/json"
	"math"
)

// Mean is one slot of a rolling series. Valid is false when the trailing
// window held fewer than MinPeriods samples; such slots carry no value.
type Mean struct {
	Value float64
	Valid bool
}

// MarshalJSON renders absent slots as null.
func (m Mean) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or null.
func (m *Mean) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Mean{}
		return nil
	}
	if err := json.Unmarshal(data, &m.Value); err != nil {
		return err
	}
	m.Valid = true
	return nil
}

// Rolling is a trailing rolling mean of magnitude, index-aligned with the
// curve it was computed from.
type Rolling struct {
	Means  []Mean
	Rate   float64 // samples per second over the whole curve
	Window int     // trailing window length in samples
}

// SampleRate is n / (t_last - t_first). A curve with no time span has rate 0.
func SampleRate(timestamps []float64) float64 {
	n := len(timestamps)
	if n < 2 {
		return 0
	}
	span := timestamps[n-1] - timestamps[0]
	if span <= 0 {
		return 0
	}
	return float64(n) / span
}

// WindowSize converts WindowSeconds into a sample count at the given rate.
func (p Params) WindowSize(rate float64) int {
	w := int(math.Round(p.WindowSeconds * rate))
	if w < p.MinWindowSamples {
		w = p.MinWindowSamples
	}
	return w
}

// SustainSamples is how many samples a forward crossing must stay below
// threshold for at the given rate.
func (p Params) SustainSamples(rate float64) int {
	s := int(math.Round(p.SustainSeconds * rate))
	if s < p.MinSustainSamples {
		s = p.MinSustainSamples
	}
	return s
}

// RollingMean computes the trailing mean of magnitudes over a window sized
// from the stream's effective sampling rate. It runs in O(n) using a
// compensated running sum. A window holding one repeated value yields that
// value exactly.
func RollingMean(timestamps, magnitudes []float64, p Params) Rolling {
	rate := SampleRate(timestamps)
	window := p.WindowSize(rate)
	means := make([]Mean, len(magnitudes))

	var sum neumaier
	run := 0 // length of the trailing run of identical values
	for i, v := range magnitudes {
		sum.add(v)
		if i >= window {
			sum.add(-magnitudes[i-window])
		}
		if i > 0 && v == magnitudes[i-1] {
			run++
		} else {
			run = 1
		}
		count := i + 1
		if count > window {
			count = window
		}
		if count < p.MinPeriods {
			continue
		}
		mean := v
		if run < count {
			mean = sum.value() / float64(count)
		}
		means[i] = Mean{Value: mean, Valid: true}
	}
	return Rolling{Means: means, Rate: rate, Window: window}
}

// neumaier is a Kahan-Babuska running sum; it keeps add/remove sequences
// within rounding of a fresh summation.
type neumaier struct {
	sum, comp float64
}

func (n *neumaier) add(v float64) {
	t := n.sum + v
	if math.Abs(n.sum) >= math.Abs(v) {
		n.comp += (n.sum - t) + v
	} else {
		n.comp += (v - t) + n.sum
	}
	n.sum = t
}

func (n *neumaier) value() float64 {
	return n.sum + n.comp
}

// ValidCount returns the number of present slots.
func (r Rolling) ValidCount() int {
	c := 0
	for _, m := range r.Means {
		if m.Valid {
			c++
		}
	}
	return c
}
