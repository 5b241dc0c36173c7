package frame

import "math"

// Shift moves values by n positions. A positive n lags the series (row i
// receives values[i-n]); a negative n leads it (row i receives values[i-n]
// from further down). Cells without a source are NaN.
func Shift(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		j := i - n
		if j < 0 || j >= len(values) {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[j]
	}
	return out
}

// RollingMean returns the trailing arithmetic mean over window values.
// A cell is NaN unless all window values ending at it are present, which
// makes the first window-1 cells NaN.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
		if window <= 0 || i+1 < window {
			continue
		}
		sum := 0.0
		ok := true
		for _, v := range values[i+1-window : i+1] {
			if math.IsNaN(v) {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EWMA returns the adjusted exponentially weighted mean with smoothing
// factor alpha. The observation at lag k from the current row carries weight
// (1-alpha)^k, normalised by the sum of weights of present observations.
// Missing observations keep their position in the decay but contribute no
// weight, so the previous mean carries through them. Cells before the first
// present observation are NaN.
func EWMA(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	decay := 1 - alpha
	num, den := 0.0, 0.0
	seen := false
	for i, v := range values {
		num *= decay
		den *= decay
		if !math.IsNaN(v) {
			num += v
			den++
			seen = true
		}
		if !seen {
			out[i] = math.NaN()
			continue
		}
		out[i] = num / den
	}
	return out
}
