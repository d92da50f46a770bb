package detection

// ScanForward walks the rolling series from searchStart onwards and returns
// the time of the first sustained drop below threshold: a present value
// under threshold such that no present value in the next sustain samples
// (including itself) climbs back to threshold. With no such drop the
// recording's last timestamp is returned.
func ScanForward(timestamps []float64, rolling []Mean, threshold, searchStart float64, sustain int) float64 {
	n := len(timestamps)
	if n == 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		if timestamps[i] < searchStart {
			continue
		}
		m := rolling[i]
		if !m.Valid || m.Value >= threshold {
			continue
		}
		if sustainedBelow(rolling, i, sustain, threshold) {
			return timestamps[i]
		}
	}
	return timestamps[n-1]
}

func sustainedBelow(rolling []Mean, from, sustain int, threshold float64) bool {
	end := from + sustain
	if end > len(rolling) {
		end = len(rolling)
	}
	for j := from; j < end; j++ {
		if rolling[j].Valid && rolling[j].Value >= threshold {
			return false
		}
	}
	return true
}

// ScanBackward returns the time of the last present rolling value at or
// above threshold, or the first timestamp if there is none.
func ScanBackward(timestamps []float64, rolling []Mean, threshold float64) float64 {
	for i := len(rolling) - 1; i >= 0; i-- {
		if rolling[i].Valid && rolling[i].Value >= threshold {
			return timestamps[i]
		}
	}
	if len(timestamps) == 0 {
		return 0
	}
	return timestamps[0]
}
