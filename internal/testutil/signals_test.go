package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	// First sample of a sine at phase 0 should be 0.
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}

	s := DeterministicSine(1000, 48000, 1.0, 4800)
	if got := RMS(s); math.Abs(got-1/math.Sqrt2) > 1e-6 {
		t.Fatalf("RMS(sine) = %v, want %v", got, 1/math.Sqrt2)
	}

	if got := RMS([]float64{-2, 2}); got != 2 {
		t.Fatalf("RMS = %v, want 2", got)
	}
}

func TestRisingZeroCrossings(t *testing.T) {
	got := RisingZeroCrossings([]float64{-1, 1, 1, -1, -3, 1})
	want := []float64{0.5, 4.75}
	RequireSliceNearlyEqual(t, got, want, 1e-12)

	if c := RisingZeroCrossings([]float64{1, 2, 3}); len(c) != 0 {
		t.Fatalf("crossings = %v, want none", c)
	}
}

func TestMeanPeriodOfSine(t *testing.T) {
	// Start at a negative phase so the first crossing is inside the buffer.
	s := DeterministicSine(441, 44100, 1.0, 1000)
	for i := range s {
		s[i] = -s[i]
	}

	p := MeanPeriod(RisingZeroCrossings(s))
	if math.Abs(p-100) > 1e-6 {
		t.Fatalf("period = %v, want 100", p)
	}

	if p := MeanPeriod([]float64{3}); p != 0 {
		t.Fatalf("single crossing period = %v, want 0", p)
	}
}
