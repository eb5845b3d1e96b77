package core

import "math"

const (
	defaultEpsilon = 1e-12

	// ReferenceNote is the MIDI note number tuned to ReferenceHz.
	ReferenceNote = 69
	// ReferenceHz is the concert pitch of ReferenceNote (A4).
	ReferenceHz = 440.0
	// MaxVelocity is the largest MIDI velocity.
	MaxVelocity = 127
)

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// This can reduce denormal-related CPU slowdowns in hot DSP loops.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// NoteToHz converts a MIDI note number to frequency using equal temperament
// with note 69 at 440 Hz.
func NoteToHz(note int) float64 {
	return ReferenceHz * math.Exp2(float64(note-ReferenceNote)/12)
}

// SemitonesToRatio converts a pitch offset in semitones to a frequency ratio.
func SemitonesToRatio(semitones float64) float64 {
	return math.Exp2(semitones / 12)
}

// VelocityToAmplitude maps a MIDI velocity to a linear amplitude using a
// squared curve, (velocity/127)^2. Velocities outside [0, 127] are clamped.
func VelocityToAmplitude(velocity int) float64 {
	v := Clamp(float64(velocity), 0, MaxVelocity) / MaxVelocity
	return v * v
}
