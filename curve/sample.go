// Package curve holds the inertial sample model and the decoders that turn
// recorded sprint payloads into time-ordered sample curves.
package curve

import (
	"math"
	"sort"
)

// Kind identifies the sensor a curve was recorded from.
type Kind uint8

const (
	Acceleration Kind = iota + 1
	Gyroscope
)

func (k Kind) String() string {
	switch k {
	case Acceleration:
		return "acceleration"
	case Gyroscope:
		return "gyroscope"
	default:
		return "unknown"
	}
}

// Sample is one timestamped 3-axis reading. Magnitude is only populated on
// acceleration curves.
type Sample struct {
	Timestamp float64 `json:"timestamp"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Magnitude float64 `json:"-"`
}

// Curve is a sample sequence sorted ascending by timestamp.
type Curve struct {
	Kind    Kind
	Samples []Sample
}

// Load copies raw samples into a Curve: stable-sorted by timestamp, with
// magnitude derived for acceleration.
func Load(kind Kind, raw []Sample) Curve {
	samples := make([]Sample, len(raw))
	copy(samples, raw)
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})
	if kind == Acceleration {
		for i := range samples {
			s := &samples[i]
			s.Magnitude = math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
		}
	}
	return Curve{Kind: kind, Samples: samples}
}

// Len returns the number of samples.
func (c Curve) Len() int { return len(c.Samples) }

// Timestamps returns the sample times in order.
func (c Curve) Timestamps() []float64 {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = s.Timestamp
	}
	return out
}

// Magnitudes returns the derived acceleration magnitudes in order.
func (c Curve) Magnitudes() []float64 {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = s.Magnitude
	}
	return out
}

// Axes splits the curve into per-axis value slices.
func (c Curve) Axes() (x, y, z []float64) {
	x = make([]float64, len(c.Samples))
	y = make([]float64, len(c.Samples))
	z = make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		x[i], y[i], z[i] = s.X, s.Y, s.Z
	}
	return x, y, z
}

// Duration is the time spanned by the curve, zero for fewer than two samples.
func (c Curve) Duration() float64 {
	if len(c.Samples) < 2 {
		return 0
	}
	return c.Samples[len(c.Samples)-1].Timestamp - c.Samples[0].Timestamp
}
