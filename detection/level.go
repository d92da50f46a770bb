package detection

import "sort"

// SprintLevel estimates the steady-state effort magnitude as the median of
// the present rolling values inside the mid-section of the recording. When
// fewer than MinMidSamples values fall inside, it returns FallbackLevel and
// fallback=true.
func SprintLevel(timestamps []float64, rolling []Mean, p Params) (level float64, fallback bool) {
	if len(timestamps) == 0 {
		return p.FallbackLevel, true
	}
	t0 := timestamps[0]
	duration := timestamps[len(timestamps)-1] - t0
	lo := t0 + duration*p.MidSectionStart
	hi := t0 + duration*p.MidSectionEnd

	mid := make([]float64, 0, len(rolling)/2)
	for i, t := range timestamps {
		if t < lo || t > hi || !rolling[i].Valid {
			continue
		}
		mid = append(mid, rolling[i].Value)
	}
	if len(mid) < p.MinMidSamples {
		return p.FallbackLevel, true
	}
	return median(mid), false
}

// SprintStart returns the time and index of the first present rolling value
// above StartThreshold, or the first sample with fallback=true.
func SprintStart(timestamps []float64, rolling []Mean, p Params) (t float64, idx int, fallback bool) {
	for i, m := range rolling {
		if m.Valid && m.Value > p.StartThreshold {
			return timestamps[i], i, false
		}
	}
	if len(timestamps) == 0 {
		return 0, 0, true
	}
	return timestamps[0], 0, true
}

// median sorts values in place.
func median(values []float64) float64 {
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2
	}
	return values[mid]
}
