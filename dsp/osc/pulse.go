// Package osc provides band-limited oscillators.
package osc

import (
	"fmt"
	"math"
)

const (
	defaultWidth = 0.5
	minWidth     = 0.0
	maxWidth     = 1.0
)

// Pulse is a variable-width pulse oscillator with polyBLEP correction at
// both edges. Width 0.5 is a square wave.
//
// Frequency may change every sample; the phase is continuous across
// changes.
type Pulse struct {
	sampleRate float64
	frequency  float64
	amplitude  float64
	width      float64
	phase      float64
}

// NewPulse returns a silent pulse oscillator (zero frequency and amplitude,
// width 0.5).
func NewPulse(sampleRate float64) (*Pulse, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return nil, fmt.Errorf("osc: sample rate must be > 0 and finite: %f", sampleRate)
	}

	return &Pulse{sampleRate: sampleRate, width: defaultWidth}, nil
}

// SampleRate returns the sample rate in Hz.
func (p *Pulse) SampleRate() float64 { return p.sampleRate }

// Frequency returns the oscillator frequency in Hz.
func (p *Pulse) Frequency() float64 { return p.frequency }

// SetFrequency sets the frequency in Hz. Negative values are treated as 0.
func (p *Pulse) SetFrequency(hz float64) {
	if !(hz > 0) {
		hz = 0
	}
	p.frequency = hz
}

// Amplitude returns the peak output level.
func (p *Pulse) Amplitude() float64 { return p.amplitude }

// SetAmplitude sets the peak output level.
func (p *Pulse) SetAmplitude(amplitude float64) { p.amplitude = amplitude }

// Width returns the duty cycle in [0, 1].
func (p *Pulse) Width() float64 { return p.width }

// SetWidth sets the duty cycle, clamped to [0, 1].
func (p *Pulse) SetWidth(width float64) {
	switch {
	case math.IsNaN(width):
		width = defaultWidth
	case width < minWidth:
		width = minWidth
	case width > maxWidth:
		width = maxWidth
	}
	p.width = width
}

// Phase returns the normalized phase in [0, 1).
func (p *Pulse) Phase() float64 { return p.phase }

// Reset zeroes the phase and restores defaults.
func (p *Pulse) Reset() {
	p.frequency = 0
	p.amplitude = 0
	p.width = defaultWidth
	p.phase = 0
}

// Next returns the next output sample and advances the phase.
func (p *Pulse) Next() float64 {
	dt := p.frequency / p.sampleRate
	if dt > 0.5 {
		dt = 0.5
	}

	out := -1.0
	if p.phase < p.width {
		out = 1
	}

	if dt > 0 {
		out += polyBLEP(p.phase, dt)
		out -= polyBLEP(wrap(p.phase-p.width), dt)
	}

	p.phase = wrap(p.phase + dt)

	return p.amplitude * out
}

// Process fills dst with consecutive samples.
func (p *Pulse) Process(dst []float64) {
	for i := range dst {
		dst[i] = p.Next()
	}
}

// polyBLEP returns the band-limited step residual at normalized phase t for
// phase increment dt.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}

	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}

	return 0
}

func wrap(x float64) float64 {
	x -= math.Floor(x)
	if x >= 1 {
		return 0
	}
	return x
}
