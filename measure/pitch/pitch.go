// Package pitch estimates the fundamental frequency and harmonic content of
// rendered signals from a windowed FFT.
package pitch

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-synth/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultRangeLowerHz = 20.0
	defaultRangeUpperHz = 20000.0
	defaultMaxHarmonics = 8
)

// ErrNoPeak is returned when the analysed range contains no energy.
var ErrNoPeak = errors.New("pitch: no spectral peak in range")

// Config holds analysis parameters.
type Config struct {
	SampleRate     float64
	FFTSize        int
	RangeLowerFreq float64
	RangeUpperFreq float64
	MaxHarmonics   int
	// WindowType selects the analysis window. The zero value selects Hann.
	WindowType window.Type
}

// Result holds the measured fundamental and its harmonics.
type Result struct {
	// Frequency is the interpolated fundamental frequency in Hz.
	Frequency float64
	// Bin is the interpolated fractional bin of the fundamental.
	Bin float64
	// Amplitude is the peak amplitude of the fundamental, corrected for the
	// window's coherent gain.
	Amplitude float64
	// Harmonics holds the amplitude of harmonics 2..N relative to the
	// fundamental.
	Harmonics []float64
	// THD is the root-sum-square of Harmonics.
	THD float64
}

// Estimator runs repeated analyses of a fixed FFT size without reallocating.
//
// It is not safe for concurrent use.
type Estimator struct {
	cfg  Config
	plan *algofft.Plan[complex128]

	in     []complex128
	out    []complex128
	re     []float64
	im     []float64
	mag    []float64
	frame  []float64
	coeffs []float64
}

// NewEstimator creates an estimator for frames of cfg.FFTSize samples.
func NewEstimator(cfg Config) (*Estimator, error) {
	cfg = normalizeConfig(cfg)

	if math.IsNaN(cfg.SampleRate) || math.IsInf(cfg.SampleRate, 0) || cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("pitch: sample rate must be > 0 and finite: %f", cfg.SampleRate)
	}

	if cfg.FFTSize < 4 {
		return nil, fmt.Errorf("pitch: fft size must be >= 4: %d", cfg.FFTSize)
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("pitch: fft plan: %w", err)
	}

	bins := cfg.FFTSize/2 + 1

	return &Estimator{
		cfg:   cfg,
		plan:  plan,
		in:    make([]complex128, cfg.FFTSize),
		out:   make([]complex128, cfg.FFTSize),
		re:    make([]float64, bins),
		im:    make([]float64, bins),
		mag:   make([]float64, bins),
		frame: make([]float64, 0, cfg.FFTSize),
	}, nil
}

// Estimate is a one-shot analysis. A zero cfg.FFTSize uses the next power
// of two not smaller than len(signal).
func Estimate(signal []float64, cfg Config) (Result, error) {
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = nextPowerOf2(len(signal))
	}

	e, err := NewEstimator(cfg)
	if err != nil {
		return Result{}, err
	}

	return e.Estimate(signal)
}

// Config returns the normalized configuration.
func (e *Estimator) Config() Config { return e.cfg }

// Estimate analyses up to FFTSize samples of signal. Shorter signals are
// zero-padded.
func (e *Estimator) Estimate(signal []float64) (Result, error) {
	n := min(len(signal), e.cfg.FFTSize)
	if n == 0 {
		return Result{}, ErrNoPeak
	}

	e.frame = append(e.frame[:0], signal[:n]...)
	if len(e.coeffs) != n {
		e.coeffs = window.Generate(e.cfg.WindowType, n)
	}

	if err := window.ApplyCoefficientsInPlace(e.frame, e.coeffs); err != nil {
		return Result{}, err
	}

	for i := range e.in {
		e.in[i] = 0
	}

	for i, v := range e.frame {
		e.in[i] = complex(v, 0)
	}

	if err := e.plan.Forward(e.out, e.in); err != nil {
		return Result{}, fmt.Errorf("pitch: fft: %w", err)
	}

	for i := range e.mag {
		e.re[i] = real(e.out[i])
		e.im[i] = imag(e.out[i])
	}

	vecmath.Magnitude(e.mag, e.re, e.im)

	return e.analyze(vecmath.Sum(e.coeffs))
}

func (e *Estimator) analyze(windowSum float64) (Result, error) {
	binHz := e.cfg.SampleRate / float64(e.cfg.FFTSize)
	maxBin := len(e.mag) - 1

	lowerBin := clampInt(int(math.Round(e.cfg.RangeLowerFreq/binHz)), 1, maxBin-1)
	upperBin := clampInt(int(math.Round(e.cfg.RangeUpperFreq/binHz)), lowerBin, maxBin-1)

	peak := lowerBin
	for i := lowerBin; i <= upperBin; i++ {
		if e.mag[i] > e.mag[peak] {
			peak = i
		}
	}

	if !(e.mag[peak] > 0) || windowSum <= 0 {
		return Result{}, ErrNoPeak
	}

	delta := interpolatePeak(e.mag[peak-1], e.mag[peak], e.mag[peak+1])
	bin := float64(peak) + delta
	amplitude := 2 * e.mag[peak] / windowSum

	res := Result{
		Frequency: bin * binHz,
		Bin:       bin,
		Amplitude: amplitude,
		Harmonics: make([]float64, 0, e.cfg.MaxHarmonics),
	}

	sumSquares := 0.0

	for k := 2; k <= e.cfg.MaxHarmonics+1; k++ {
		hb := int(math.Round(bin * float64(k)))
		if hb >= maxBin {
			break
		}

		level := localMax(e.mag, hb-1, hb+1) / e.mag[peak]
		res.Harmonics = append(res.Harmonics, level)
		sumSquares += level * level
	}

	res.THD = math.Sqrt(sumSquares)

	return res, nil
}

// interpolatePeak fits a parabola through the log magnitudes around a local
// maximum and returns the vertex offset in bins, in [-0.5, 0.5].
func interpolatePeak(left, center, right float64) float64 {
	if left <= 0 || right <= 0 {
		return 0
	}

	a := math.Log(left)
	b := math.Log(center)
	c := math.Log(right)

	den := a - 2*b + c
	if den == 0 {
		return 0
	}

	d := 0.5 * (a - c) / den
	if d > 0.5 {
		return 0.5
	}

	if d < -0.5 {
		return -0.5
	}

	return d
}

func localMax(mag []float64, lo, hi int) float64 {
	lo = max(lo, 0)
	hi = min(hi, len(mag)-1)

	best := 0.0
	for i := lo; i <= hi; i++ {
		best = max(best, mag[i])
	}

	return best
}

func normalizeConfig(cfg Config) Config {
	if cfg.RangeLowerFreq <= 0 {
		cfg.RangeLowerFreq = defaultRangeLowerHz
	}

	if cfg.RangeUpperFreq <= 0 {
		cfg.RangeUpperFreq = defaultRangeUpperHz
	}

	if cfg.RangeUpperFreq < cfg.RangeLowerFreq {
		cfg.RangeUpperFreq = cfg.RangeLowerFreq
	}

	if cfg.MaxHarmonics <= 0 {
		cfg.MaxHarmonics = defaultMaxHarmonics
	}

	if cfg.WindowType == window.TypeRectangular {
		cfg.WindowType = window.TypeHann
	}

	return cfg
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
