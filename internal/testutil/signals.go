package testutil

import "math"

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// RMS returns the root mean square of x, or 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// RisingZeroCrossings returns the fractional sample positions where x
// crosses zero upward, located by linear interpolation.
func RisingZeroCrossings(x []float64) []float64 {
	var out []float64
	for i := 1; i < len(x); i++ {
		a, b := x[i-1], x[i]
		if a < 0 && b >= 0 {
			out = append(out, float64(i-1)+a/(a-b))
		}
	}
	return out
}

// MeanPeriod returns the average spacing of consecutive crossing positions,
// or 0 when fewer than two are given.
func MeanPeriod(crossings []float64) float64 {
	if len(crossings) < 2 {
		return 0
	}
	return (crossings[len(crossings)-1] - crossings[0]) / float64(len(crossings)-1)
}
