package synth

import (
	"math"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/param"
)

// Address identifies a smoothed bank parameter.
type Address int

const (
	// AttackDuration is the amplitude envelope attack time in seconds.
	AttackDuration Address = iota
	// DecayDuration is the amplitude envelope decay time in seconds.
	DecayDuration
	// SustainLevel is the amplitude envelope sustain level.
	SustainLevel
	// ReleaseDuration is the amplitude envelope release time in seconds.
	ReleaseDuration
	// PitchBend is a global pitch offset in semitones.
	PitchBend
	// VibratoDepth is the vibrato excursion in semitones.
	VibratoDepth
	// VibratoRate is the vibrato frequency in Hz.
	VibratoRate
	// PulseWidth is the oscillator duty cycle.
	PulseWidth
	// FilterCutoffFrequency is the filter cutoff in Hz with the filter
	// envelope closed.
	FilterCutoffFrequency
	// FilterResonance is the normalized filter resonance.
	FilterResonance
	// FilterAttackDuration is the filter envelope attack time in seconds.
	FilterAttackDuration
	// FilterDecayDuration is the filter envelope decay time in seconds.
	FilterDecayDuration
	// FilterSustainLevel is the filter envelope sustain level.
	FilterSustainLevel
	// FilterReleaseDuration is the filter envelope release time in seconds.
	FilterReleaseDuration

	numAddresses
)

// NumParameters is the number of addressable parameters.
const NumParameters = int(numAddresses)

// ParameterInfo describes the range and default of a parameter.
type ParameterInfo struct {
	Address Address
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// Envelope times and sustain levels share one range.
const maxEnvelopeValue = 99.0

var parameterInfos = [numAddresses]ParameterInfo{
	{AttackDuration, "attackDuration", 0, maxEnvelopeValue, 0.1},
	{DecayDuration, "decayDuration", 0, maxEnvelopeValue, 0.1},
	{SustainLevel, "sustainLevel", 0, maxEnvelopeValue, 1},
	{ReleaseDuration, "releaseDuration", 0, maxEnvelopeValue, 0.1},
	{PitchBend, "pitchBend", -24, 24, 0},
	{VibratoDepth, "vibratoDepth", 0, 24, 0},
	{VibratoRate, "vibratoRate", 0, 600, 0},
	{PulseWidth, "pulseWidth", 0, 1, 0.5},
	{FilterCutoffFrequency, "filterCutoffFrequency", 0, NyquistReference, NyquistReference},
	{FilterResonance, "filterResonance", 0, 1, 0},
	{FilterAttackDuration, "filterAttackDuration", 0, maxEnvelopeValue, 0.1},
	{FilterDecayDuration, "filterDecayDuration", 0, maxEnvelopeValue, 0.1},
	{FilterSustainLevel, "filterSustainLevel", 0, maxEnvelopeValue, 1},
	{FilterReleaseDuration, "filterReleaseDuration", 0, maxEnvelopeValue, 0.1},
}

// Parameters returns the descriptions of all parameters in address order.
func Parameters() []ParameterInfo {
	out := make([]ParameterInfo, len(parameterInfos))
	copy(out, parameterInfos[:])

	return out
}

// LookupParameter finds a parameter by name.
func LookupParameter(name string) (ParameterInfo, bool) {
	for _, info := range parameterInfos {
		if info.Name == name {
			return info, true
		}
	}

	return ParameterInfo{}, false
}

// Valid reports whether a names a parameter.
func (a Address) Valid() bool { return a >= 0 && a < numAddresses }

func (a Address) String() string {
	if !a.Valid() {
		return "unknown"
	}

	return parameterInfos[a].Name
}

// clamp limits v to the parameter's range.
func (a Address) clamp(v float64) float64 {
	info := &parameterInfos[a]
	return core.Clamp(v, info.Min, info.Max)
}

// parameter pairs the block value used by Render with its ramper.
type parameter struct {
	value  float64
	ramper *param.Ramper
}

func newParameters(rampFrames int) [numAddresses]parameter {
	var ps [numAddresses]parameter

	for i := range ps {
		def := parameterInfos[i].Default
		ps[i] = parameter{value: def, ramper: param.NewRamper(def)}
		ps[i].ramper.SetRampDuration(rampFrames)
	}

	return ps
}

// SetParameter sets a new target for addr. The value is clamped and reached
// through a dezipper ramp that starts on the next Render. Unknown addresses
// and NaN values are ignored.
func (b *Bank) SetParameter(addr Address, value float64) {
	if !addr.Valid() || math.IsNaN(value) {
		return
	}

	b.params[addr].ramper.SetUIValue(addr.clamp(value))
}

// Parameter returns the last value set for addr through any of the setters.
// Unknown addresses return 0.
func (b *Bank) Parameter(addr Address) float64 {
	if !addr.Valid() {
		return 0
	}

	return b.params[addr].ramper.UIValue()
}

// ParameterValue returns the value of addr used by the most recent Render,
// or set directly since.
func (b *Bank) ParameterValue(addr Address) float64 {
	if !addr.Valid() {
		return 0
	}

	return b.params[addr].value
}

// StartRamp begins a linear transition of addr toward the clamped value over
// frames steps. The ramper advances once per Render call. NaN values are
// ignored.
func (b *Bank) StartRamp(addr Address, value float64, frames int) {
	if !addr.Valid() || math.IsNaN(value) {
		return
	}

	b.params[addr].ramper.StartRamp(addr.clamp(value), frames)
}

// setImmediate stores the clamped value and snaps the ramper to it. NaN
// leaves the parameter unchanged.
func (b *Bank) setImmediate(addr Address, value float64) {
	if math.IsNaN(value) {
		return
	}

	p := &b.params[addr]
	p.value = addr.clamp(value)
	p.ramper.SetImmediate(p.value)
}

// SetAttackDuration sets the amplitude attack time without ramping.
func (b *Bank) SetAttackDuration(seconds float64) { b.setImmediate(AttackDuration, seconds) }

// SetDecayDuration sets the amplitude decay time without ramping.
func (b *Bank) SetDecayDuration(seconds float64) { b.setImmediate(DecayDuration, seconds) }

// SetSustainLevel sets the amplitude sustain level without ramping.
func (b *Bank) SetSustainLevel(level float64) { b.setImmediate(SustainLevel, level) }

// SetReleaseDuration sets the amplitude release time without ramping.
func (b *Bank) SetReleaseDuration(seconds float64) { b.setImmediate(ReleaseDuration, seconds) }

// SetPitchBend sets the global pitch offset in semitones without ramping.
func (b *Bank) SetPitchBend(semitones float64) { b.setImmediate(PitchBend, semitones) }

// SetVibratoDepth sets the vibrato depth in semitones without ramping.
func (b *Bank) SetVibratoDepth(semitones float64) { b.setImmediate(VibratoDepth, semitones) }

// SetVibratoRate sets the vibrato rate in Hz without ramping.
func (b *Bank) SetVibratoRate(hz float64) { b.setImmediate(VibratoRate, hz) }

// SetPulseWidth sets the oscillator duty cycle without ramping.
func (b *Bank) SetPulseWidth(width float64) { b.setImmediate(PulseWidth, width) }

// SetFilterCutoffFrequency sets the base filter cutoff without ramping.
func (b *Bank) SetFilterCutoffFrequency(hz float64) { b.setImmediate(FilterCutoffFrequency, hz) }

// SetFilterResonance sets the filter resonance without ramping.
func (b *Bank) SetFilterResonance(resonance float64) { b.setImmediate(FilterResonance, resonance) }

// SetFilterAttackDuration sets the filter envelope attack time without ramping.
func (b *Bank) SetFilterAttackDuration(seconds float64) {
	b.setImmediate(FilterAttackDuration, seconds)
}

// SetFilterDecayDuration sets the filter envelope decay time without ramping.
func (b *Bank) SetFilterDecayDuration(seconds float64) {
	b.setImmediate(FilterDecayDuration, seconds)
}

// SetFilterSustainLevel sets the filter envelope sustain level without ramping.
func (b *Bank) SetFilterSustainLevel(level float64) { b.setImmediate(FilterSustainLevel, level) }

// SetFilterReleaseDuration sets the filter envelope release time without ramping.
func (b *Bank) SetFilterReleaseDuration(seconds float64) {
	b.setImmediate(FilterReleaseDuration, seconds)
}

// stepParameters advances every ramper once and snapshots the block values.
func (b *Bank) stepParameters() renderContext {
	for i := range b.params {
		b.params[i].value = b.params[i].ramper.GetAndStep()
	}

	v := func(a Address) float64 { return b.params[a].value }

	return renderContext{
		sampleRate:   b.cfg.SampleRate,
		runningIndex: b.runningSampleIndex,
		pitchBend:    v(PitchBend),
		vibratoDepth: v(VibratoDepth),
		vibratoRate:  v(VibratoRate),
		pulseWidth:   v(PulseWidth),
		cutoff:       v(FilterCutoffFrequency),
		resonance:    v(FilterResonance),
		amp: envelopeParams{
			attack:  v(AttackDuration),
			decay:   v(DecayDuration),
			sustain: v(SustainLevel),
			release: v(ReleaseDuration),
		},
		filter: envelopeParams{
			attack:  v(FilterAttackDuration),
			decay:   v(FilterDecayDuration),
			sustain: v(FilterSustainLevel),
			release: v(FilterReleaseDuration),
		},
	}
}

func (b *Bank) resetParameters() {
	for i := range b.params {
		b.params[i].ramper.Reset()
		b.params[i].value = b.params[i].ramper.Goal()
	}
}
