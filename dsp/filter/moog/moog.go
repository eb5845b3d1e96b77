package moog

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/dsp/core"
)

const (
	defaultCutoffHz       = 1000.0
	defaultDrive          = 1.0
	defaultThermalVoltage = 5.0

	minCutoffHz       = 1.0
	minDrive          = 0.1
	maxDrive          = 24.0
	minThermalVoltage = 0.1
	maxThermalVoltage = 10.0

	// stateLimit bounds each integrator stage.
	stateLimit = 32.0
)

// MaxResonance is the resonance at which the ladder self-oscillates.
const MaxResonance = 4.0

// Variant selects the ladder model.
type Variant int

const (
	// VariantClassic is the four-stage ladder with tanh saturation per stage.
	VariantClassic Variant = iota
	// VariantImprovedClassic scales the stage gain by the thermal voltage.
	VariantImprovedClassic
	// VariantHuovilainen adds cutoff tuning and resonance compensation and
	// averages the feedback over half a sample.
	VariantHuovilainen
)

func (v Variant) String() string {
	switch v {
	case VariantClassic:
		return "classic"
	case VariantImprovedClassic:
		return "improved_classic"
	case VariantHuovilainen:
		return "huovilainen"
	default:
		return "unknown"
	}
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	variant         Variant
	cutoffHz        float64
	resonance       float64
	drive           float64
	thermalVoltage  float64
	normalizeOutput bool
}

// WithVariant selects the ladder model.
func WithVariant(variant Variant) Option {
	return func(cfg *config) error {
		if variant < VariantClassic || variant > VariantHuovilainen {
			return fmt.Errorf("moog: invalid variant: %d", variant)
		}

		cfg.variant = variant

		return nil
	}
}

// WithCutoffHz sets the initial cutoff in Hz. It must be finite, at least
// 1 Hz and at most the Nyquist frequency.
func WithCutoffHz(cutoffHz float64) Option {
	return func(cfg *config) error {
		return checkRange(&cfg.cutoffHz, cutoffHz, minCutoffHz, math.Inf(1), "cutoff")
	}
}

// WithResonance sets feedback resonance in [0, MaxResonance].
func WithResonance(resonance float64) Option {
	return func(cfg *config) error {
		return checkRange(&cfg.resonance, resonance, 0, MaxResonance, "resonance")
	}
}

// WithDrive sets the input drive in [0.1, 24].
func WithDrive(drive float64) Option {
	return func(cfg *config) error {
		return checkRange(&cfg.drive, drive, minDrive, maxDrive, "drive")
	}
}

// WithThermalVoltage sets the saturation knee in [0.1, 10].
func WithThermalVoltage(thermalVoltage float64) Option {
	return func(cfg *config) error {
		return checkRange(&cfg.thermalVoltage, thermalVoltage, minThermalVoltage, maxThermalVoltage, "thermal voltage")
	}
}

// WithNormalizeOutput enables or disables the resonance gain compensation.
func WithNormalizeOutput(enabled bool) Option {
	return func(cfg *config) error {
		cfg.normalizeOutput = enabled
		return nil
	}
}

// ladderState is the ladder memory.
type ladderState struct {
	Stage      [4]float64
	TanhLast   [3]float64
	PrevOutput float64
}

// Filter is a nonlinear four-stage ladder low-pass. All methods after New
// are allocation free.
type Filter struct {
	sampleRate float64
	variant    Variant

	cutoffHz        float64
	resonance       float64
	thermalVoltage  float64
	normalizeOutput bool

	// derived
	stageGain   float64
	feedback    float64
	driveScale  float64
	outputScale float64

	state ladderState
}

// New constructs a ladder filter. It defaults to VariantHuovilainen at
// 1 kHz with no resonance and output normalization on.
func New(sampleRate float64, opts ...Option) (*Filter, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("moog: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := config{
		variant:         VariantHuovilainen,
		cutoffHz:        defaultCutoffHz,
		drive:           defaultDrive,
		thermalVoltage:  defaultThermalVoltage,
		normalizeOutput: true,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if nyquist := sampleRate / 2; cfg.cutoffHz > nyquist {
		return nil, fmt.Errorf("moog: cutoff must be <= Nyquist (%f Hz): %f", nyquist, cfg.cutoffHz)
	}

	f := &Filter{
		sampleRate:      sampleRate,
		variant:         cfg.variant,
		cutoffHz:        cfg.cutoffHz,
		resonance:       cfg.resonance,
		thermalVoltage:  cfg.thermalVoltage,
		normalizeOutput: cfg.normalizeOutput,
		driveScale:      0.5 * cfg.drive / cfg.thermalVoltage,
	}
	f.updateCoefficients()
	f.updateOutputScale()

	return f, nil
}

// Variant returns the ladder model.
func (f *Filter) Variant() Variant { return f.variant }

// CutoffHz returns the cutoff frequency in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Resonance returns the feedback resonance.
func (f *Filter) Resonance() float64 { return f.resonance }

// SetCutoffHz updates the cutoff, clamped to [1 Hz, Nyquist]. Non-finite
// values are ignored. Safe to call every sample.
func (f *Filter) SetCutoffHz(cutoffHz float64) {
	if !isFinite(cutoffHz) {
		return
	}

	cutoffHz = core.Clamp(cutoffHz, minCutoffHz, f.sampleRate/2)
	if cutoffHz == f.cutoffHz {
		return
	}

	f.cutoffHz = cutoffHz
	f.updateCoefficients()
}

// SetResonance updates resonance, clamped to [0, MaxResonance]. Non-finite
// values are ignored.
func (f *Filter) SetResonance(resonance float64) {
	if !isFinite(resonance) {
		return
	}

	resonance = core.Clamp(resonance, 0, MaxResonance)
	if resonance == f.resonance {
		return
	}

	f.resonance = resonance
	f.updateCoefficients()
	f.updateOutputScale()
}

// Reset clears the ladder memory.
func (f *Filter) Reset() {
	f.state = ladderState{}
}

// ProcessSample filters one sample. Non-finite input is treated as silence
// and non-finite output is replaced by 0.
func (f *Filter) ProcessSample(input float64) float64 {
	if !isFinite(input) {
		input = 0
	}

	s := &f.state

	var y float64
	if f.variant == VariantHuovilainen {
		fb := 0.5 * (s.Stage[3] + s.PrevOutput)
		y = f.ladder(math.Tanh(f.driveScale*(input-f.feedback*fb)), true)
	} else {
		y = f.ladder(math.Tanh(f.driveScale*(input-f.feedback*s.Stage[3])), false)
	}

	y *= f.outputScale
	if !isFinite(y) {
		return 0
	}

	return y
}

// ladder runs the four integrator stages on the saturated input x. With
// fresh set, each stage's own saturation is recomputed from its state;
// otherwise the value memorized on the previous sample is used.
func (f *Filter) ladder(x float64, fresh bool) float64 {
	s := &f.state
	g, k := f.stageGain, f.driveScale

	for i := range s.Stage {
		var self float64
		if fresh || i == len(s.Stage)-1 {
			self = math.Tanh(k * s.Stage[i])
		} else {
			self = s.TanhLast[i]
		}

		s.Stage[i] = core.Clamp(s.Stage[i]+g*(x-self), -stateLimit, stateLimit)

		if i < len(s.TanhLast) {
			s.TanhLast[i] = math.Tanh(k * s.Stage[i])
			x = s.TanhLast[i]
		}
	}

	s.PrevOutput = s.Stage[3]

	return s.Stage[3]
}

func (f *Filter) updateCoefficients() {
	fc := f.cutoffHz / f.sampleRate
	vt2 := 2 * f.thermalVoltage

	switch f.variant {
	case VariantHuovilainen:
		tuning := math.Max(0, 1.8730*fc*fc*fc+0.4955*fc*fc-0.6490*fc+0.9988)
		comp := math.Max(0, -3.9364*fc*fc+1.8409*fc+0.9968)
		f.stageGain = vt2 * (1 - math.Exp(-2*math.Pi*tuning*fc))
		f.feedback = f.resonance * comp
	case VariantImprovedClassic:
		f.stageGain = vt2 * (1 - math.Exp(-2*math.Pi*fc)) * vt2
		f.feedback = f.resonance
	default:
		f.stageGain = vt2 * (1 - math.Exp(-2*math.Pi*fc))
		f.feedback = f.resonance
	}
}

// updateOutputScale applies a resonance-dependent gain (resonance read as
// dB, squared) and optionally divides by 1 + resonance/2.
func (f *Filter) updateOutputScale() {
	amp := math.Pow(10, f.resonance/20)
	scale := amp * amp
	if f.normalizeOutput {
		scale /= 1 + 0.5*f.resonance
	}

	f.outputScale = scale
}

func checkRange(dst *float64, value, lo, hi float64, name string) error {
	if !isFinite(value) {
		return fmt.Errorf("moog: %s must be finite: %v", name, value)
	}

	if value < lo || value > hi {
		return fmt.Errorf("moog: %s must be in [%g, %g]: %f", name, lo, hi, value)
	}

	*dst = value

	return nil
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
