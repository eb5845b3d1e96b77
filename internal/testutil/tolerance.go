package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t when got and want differ in length or
// any pair of samples is more than eps apart.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	d, at, err := MaxAbsDiff(got, want)
	if err != nil {
		t.Fatal(err)
	}

	if d > eps {
		t.Fatalf("sample %d: got %v, want %v (|diff| %g > %g)", at, got[at], want[at], d, eps)
	}
}

// RequireFinite fails t on the first NaN or Inf sample.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("sample %d is not finite: %v", i, v)
		}
	}
}

// MaxAbsDiff returns the largest |a[i]-b[i]| and the first index where it
// occurs. A NaN on either side counts as an infinite difference.
func MaxAbsDiff(a, b []float64) (float64, int, error) {
	if len(a) != len(b) {
		return 0, -1, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}

	worst, at := 0.0, -1
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if math.IsNaN(d) {
			d = math.Inf(1)
		}

		if d > worst {
			worst, at = d, i
		}
	}

	return worst, at, nil
}

// RequireWithin fails t if got is farther than eps from want.
func RequireWithin(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > eps {
		t.Fatalf("%s = %v, want %v ± %v", name, got, want, eps)
	}
}

// RequireUnchanged fails t if buf differs from before at any index.
func RequireUnchanged(t *testing.T, buf, before []float64) {
	t.Helper()
	if len(buf) != len(before) {
		t.Fatalf("length mismatch: got %d, want %d", len(buf), len(before))
	}
	for i := range buf {
		if buf[i] != before[i] && !(math.IsNaN(buf[i]) && math.IsNaN(before[i])) {
			t.Fatalf("index %d changed: %v -> %v", i, before[i], buf[i])
		}
	}
}
