package envelope

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/dsp/core"
)

// attackTimeConstant scales the attack time to the one-pole time constant,
// so the attack segment reaches ~74% of full scale at the attack time before
// handing over to decay.
const attackTimeConstant = 0.75

// Stage is the current segment of an ADSR envelope.
type Stage int

const (
	// StageIdle outputs silence until the gate rises.
	StageIdle Stage = iota
	// StageAttack rises toward full scale.
	StageAttack
	// StageDecay falls from the attack peak toward the sustain level and
	// holds there while the gate stays high.
	StageDecay
	// StageRelease falls toward zero after the gate drops.
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageRelease:
		return "release"
	default:
		return "unknown"
	}
}

// ADSR is a gate-driven attack/decay/sustain/release generator.
//
// Times are in seconds and the sustain value is a level. Neither is clamped
// here; range policy belongs to the owner.
type ADSR struct {
	sampleRate float64

	attack  float64
	decay   float64
	sustain float64
	release float64

	stage        Stage
	level        float64
	prevGate     float64
	pole         float64
	attackFrames float64
	timer        int
}

// New creates an idle envelope with attack/decay/release of 0.1 s and a
// sustain level of 1.
func New(sampleRate float64) (*ADSR, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return nil, fmt.Errorf("envelope: sample rate must be > 0 and finite: %f", sampleRate)
	}

	return &ADSR{
		sampleRate: sampleRate,
		attack:     0.1,
		decay:      0.1,
		sustain:    1,
		release:    0.1,
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (e *ADSR) SampleRate() float64 { return e.sampleRate }

// Stage returns the current segment.
func (e *ADSR) Stage() Stage { return e.stage }

// Level returns the last computed output.
func (e *ADSR) Level() float64 { return e.level }

// SetADSR updates all four parameters. Changes take effect at the next
// segment boundary or gate edge, except sustain which is tracked live.
func (e *ADSR) SetADSR(attack, decay, sustain, release float64) {
	e.attack = attack
	e.decay = decay
	e.sustain = sustain
	e.release = release
}

// ADSR returns the configured attack, decay, sustain and release.
func (e *ADSR) ADSR() (attack, decay, sustain, release float64) {
	return e.attack, e.decay, e.sustain, e.release
}

// Reset returns the envelope to idle with zero output.
func (e *ADSR) Reset() {
	e.stage = StageIdle
	e.level = 0
	e.prevGate = 0
	e.pole = 0
	e.attackFrames = 0
	e.timer = 0
}

// Compute advances one sample with the given gate and returns the new level.
func (e *ADSR) Compute(gate float64) float64 {
	switch {
	case gate > e.prevGate:
		e.stage = StageAttack
		e.timer = 0
		e.attackFrames = e.attack * e.sampleRate
		e.pole = e.timeToPole(e.attack * attackTimeConstant)
	case gate < e.prevGate && e.stage != StageIdle:
		e.stage = StageRelease
		e.pole = e.timeToPole(e.release)
	}
	e.prevGate = gate

	switch e.stage {
	case StageAttack:
		e.level = 1 + (e.level-1)*e.pole
		e.timer++
		if e.level >= 1 || float64(e.timer) >= e.attackFrames {
			e.stage = StageDecay
			e.pole = e.timeToPole(e.decay)
		}
	case StageDecay:
		e.level = e.sustain + (e.level-e.sustain)*e.pole
	case StageRelease:
		e.level = core.FlushDenormals(e.level * e.pole)
	default:
		e.level = 0
	}

	return e.level
}

// Process fills dst with envelope output for a constant gate.
func (e *ADSR) Process(dst []float64, gate float64) {
	for i := range dst {
		dst[i] = e.Compute(gate)
	}
}

// timeToPole returns the one-pole coefficient for a time constant in
// seconds. Non-positive times give an instant segment.
func (e *ADSR) timeToPole(seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}

	return math.Exp(-1 / (seconds * e.sampleRate))
}
