package synth

import (
	"math"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/envelope"
	"github.com/cwbudde/algo-synth/dsp/filter/moog"
	"github.com/cwbudde/algo-synth/dsp/osc"
)

// Ladder configuration shared by every voice. The drive and knee keep a
// full-scale pulse close to the linear region of the first stage.
const (
	ladderVariant        = moog.VariantHuovilainen
	ladderDrive          = 1.0
	ladderThermalVoltage = 5.0
)

// Stage is the lifecycle state of a voice.
type Stage int

const (
	// StageOff is inactive and not on the active list.
	StageOff Stage = iota
	// StageOn is sounding with the gate held.
	StageOn
	// StageRelease is decaying after note-off.
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageOff:
		return "off"
	case StageOn:
		return "on"
	case StageRelease:
		return "release"
	default:
		return "unknown"
	}
}

// VoiceState is a snapshot of one voice slot.
type VoiceState struct {
	Note  int
	Stage Stage
	Gate  float64
	// Amplitude and FilterEnvelopeLevel are the last outputs of the two
	// envelopes.
	Amplitude           float64
	FilterEnvelopeLevel float64
	// Frequency is the unmodulated oscillator frequency in Hz.
	Frequency float64
	// Level is the velocity-derived oscillator amplitude.
	Level float64
	// FilterCutoff is the cutoff the ladder filter last ran at.
	FilterCutoff float64
}

type envelopeParams struct {
	attack, decay, sustain, release float64
}

// renderContext carries the block-constant bank state into voice rendering.
type renderContext struct {
	sampleRate   float64
	runningIndex int64

	pitchBend    float64
	vibratoDepth float64
	vibratoRate  float64

	pulseWidth float64
	cutoff     float64
	resonance  float64

	amp    envelopeParams
	filter envelopeParams
}

// voice is one permanently allocated slot of the bank.
type voice struct {
	stage       Stage
	gate        float64
	amplitude   float64
	filterLevel float64

	osc       *osc.Pulse
	filter    *moog.Filter
	ampEnv    *envelope.ADSR
	filterEnv *envelope.ADSR
}

func newVoice(sampleRate float64) (voice, error) {
	p, err := osc.NewPulse(sampleRate)
	if err != nil {
		return voice{}, err
	}

	f, err := moog.New(sampleRate,
		moog.WithVariant(ladderVariant),
		moog.WithCutoffHz(math.Min(NyquistReference, sampleRate/2)),
		moog.WithDrive(ladderDrive),
		moog.WithThermalVoltage(ladderThermalVoltage),
		moog.WithNormalizeOutput(true),
	)
	if err != nil {
		return voice{}, err
	}

	ampEnv, err := envelope.New(sampleRate)
	if err != nil {
		return voice{}, err
	}

	filterEnv, err := envelope.New(sampleRate)
	if err != nil {
		return voice{}, err
	}

	return voice{osc: p, filter: f, ampEnv: ampEnv, filterEnv: filterEnv}, nil
}

// activate resets the DSP state of a slot leaving StageOff.
func (v *voice) activate() {
	v.osc.Reset()
	v.filter.Reset()
	v.ampEnv.Reset()
	v.filterEnv.Reset()
}

// trigger starts or restarts the note at hz with oscillator level amp.
func (v *voice) trigger(hz, amp float64) {
	v.osc.SetFrequency(hz)
	v.osc.SetAmplitude(amp)
	v.filter.SetCutoffHz(NyquistReference)
	v.stage = StageOn
	v.gate = 1
}

// release moves a held voice to StageRelease. It is a no-op in any other
// stage.
func (v *voice) release() {
	if v.stage != StageOn {
		return
	}

	v.stage = StageRelease
	v.gate = 0
}

func (v *voice) clear() {
	v.stage = StageOff
	v.gate = 0
	v.amplitude = 0
	v.filterLevel = 0
}

// finished reports whether the release tail has decayed below
// SilenceThreshold.
func (v *voice) finished() bool {
	return v.stage == StageRelease && v.amplitude < SilenceThreshold
}

// render adds the voice output for len(outL) frames into outL and outR.
func (v *voice) render(ctx *renderContext, outL, outR []float64) {
	base := v.osc.Frequency()
	bent := core.Clamp(base*core.SemitonesToRatio(ctx.pitchBend), 0, NyquistReference)

	v.osc.SetWidth(ctx.pulseWidth)
	v.ampEnv.SetADSR(ctx.amp.attack, ctx.amp.decay, ctx.amp.sustain, ctx.amp.release)
	v.filterEnv.SetADSR(ctx.filter.attack, ctx.filter.decay, ctx.filter.sustain, ctx.filter.release)
	v.filter.SetResonance(ctx.resonance * moog.MaxResonance)

	depth := ctx.vibratoDepth / 12
	omega := 4 * math.Pi * ctx.vibratoRate / ctx.sampleRate

	if depth == 0 {
		v.osc.SetFrequency(bent)
	}

	_ = outR[len(outL)-1]

	for i := range outL {
		if depth != 0 {
			variation := math.Sin(float64(ctx.runningIndex+int64(i)) * omega)
			v.osc.SetFrequency(core.Clamp(bent*math.Exp2(depth*variation), 0, NyquistReference))
		}

		v.amplitude = v.ampEnv.Compute(v.gate)
		x := v.osc.Next()

		v.filterLevel = v.filterEnv.Compute(v.gate)
		v.filter.SetCutoffHz(core.Clamp(ctx.cutoff+(NyquistReference-ctx.cutoff)*v.filterLevel, 0, NyquistReference))

		y := v.amplitude * v.filter.ProcessSample(x)
		outL[i] += y
		outR[i] += y
	}

	v.osc.SetFrequency(base)
}

func (v *voice) state(note int) VoiceState {
	return VoiceState{
		Note:                note,
		Stage:               v.stage,
		Gate:                v.gate,
		Amplitude:           v.amplitude,
		FilterEnvelopeLevel: v.filterLevel,
		Frequency:           v.osc.Frequency(),
		Level:               v.osc.Amplitude(),
		FilterCutoff:        v.filter.CutoffHz(),
	}
}
