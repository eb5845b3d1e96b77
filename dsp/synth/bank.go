package synth

import (
	"fmt"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// NumVoices is the number of voice slots, one per MIDI note number.
	NumVoices = 128
	// NyquistReference is the fixed upper bound for oscillator and filter
	// frequencies. It assumes a 44.1 kHz stream regardless of the configured
	// sample rate.
	NyquistReference = 22050.0
	// SilenceThreshold is the amplitude below which a releasing voice is
	// removed.
	SilenceThreshold = 1e-5
	// OutputGain is applied to the summed voices of each block.
	OutputGain = 0.5
)

// Bank is a fixed set of NumVoices voices indexed by note number.
type Bank struct {
	cfg core.EngineConfig

	voices [NumVoices]voice
	active activeList
	params [numAddresses]parameter

	runningSampleIndex int64

	scratchL []float64
	scratchR []float64
}

// NewBank allocates all voices and parameter state.
func NewBank(opts ...core.EngineOption) (*Bank, error) {
	cfg, err := core.NewEngineConfig(opts...)
	if err != nil {
		return nil, err
	}

	b := &Bank{
		cfg:      cfg,
		params:   newParameters(cfg.RampFrames()),
		scratchL: make([]float64, cfg.MaxBlockSize),
		scratchR: make([]float64, cfg.MaxBlockSize),
	}

	for i := range b.voices {
		v, err := newVoice(cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("synth: voice %d: %w", i, err)
		}

		b.voices[i] = v
	}

	b.active.reset()

	return b, nil
}

// Config returns the engine configuration.
func (b *Bank) Config() core.EngineConfig { return b.cfg }

// NoteOn starts note with the given velocity, tuned to equal temperament
// with note 69 at 440 Hz. Velocity 0 is a note-off. Notes outside
// [0, NumVoices) are ignored and velocities are clamped to [0, 127].
func (b *Bank) NoteOn(note, velocity int) {
	if note < 0 || note >= NumVoices {
		return
	}

	b.NoteOnFrequency(note, velocity, core.NoteToHz(note))
}

// NoteOnFrequency is NoteOn with an explicit oscillator frequency in Hz.
func (b *Bank) NoteOnFrequency(note, velocity int, hz float64) {
	if note < 0 || note >= NumVoices {
		return
	}

	v := &b.voices[note]

	if velocity <= 0 {
		v.release()
		return
	}

	if v.stage == StageOff {
		v.activate()
		b.active.pushFront(note)
	}

	v.trigger(hz, core.VelocityToAmplitude(velocity))
}

// NoteOff releases note. Releasing a voice that is not held does nothing.
func (b *Bank) NoteOff(note int) {
	b.NoteOnFrequency(note, 0, 0)
}

// Render adds frameCount frames of output into outL and outR. frameCount is
// limited to the shorter buffer. Every parameter ramper advances exactly once
// per call with a positive frame count.
func (b *Bank) Render(frameCount int, outL, outR []float64) {
	frameCount = min(frameCount, len(outL), len(outR))
	if frameCount <= 0 {
		return
	}

	ctx := b.stepParameters()

	rendered := b.active.count > 0
	if rendered {
		b.scratchL = core.EnsureLen(b.scratchL, frameCount)
		b.scratchR = core.EnsureLen(b.scratchR, frameCount)
		core.Zero(b.scratchL)
		core.Zero(b.scratchR)

		for idx := b.active.head; idx != none; {
			next := b.active.next[idx]

			v := &b.voices[idx]
			v.render(&ctx, b.scratchL, b.scratchR)

			if v.finished() {
				v.clear()
				b.active.remove(idx)
			}

			idx = next
		}
	}

	b.runningSampleIndex += int64(frameCount / 2)

	if !rendered {
		return
	}

	vecmath.ScaleBlockInPlace(b.scratchL, OutputGain)
	vecmath.ScaleBlockInPlace(b.scratchR, OutputGain)
	vecmath.AddBlockInPlace(outL[:frameCount], b.scratchL)
	vecmath.AddBlockInPlace(outR[:frameCount], b.scratchR)
}

// Reset silences every voice, empties the active list, rewinds the running
// sample index and returns all parameters to their defaults. It must not be
// called concurrently with Render.
func (b *Bank) Reset() {
	for i := range b.voices {
		b.voices[i].clear()
		b.voices[i].activate()
	}

	b.active.reset()
	b.runningSampleIndex = 0
	b.resetParameters()
}

// ActiveCount returns the number of sounding voices.
func (b *Bank) ActiveCount() int { return b.active.count }

// ActiveNotes appends the sounding note numbers to dst in list order, most
// recently activated first.
func (b *Bank) ActiveNotes(dst []int) []int {
	for idx := b.active.head; idx != none; idx = b.active.next[idx] {
		dst = append(dst, idx)
	}

	return dst
}

// Voice returns a snapshot of the slot for note. Out-of-range notes return
// an idle state.
func (b *Bank) Voice(note int) VoiceState {
	if note < 0 || note >= NumVoices {
		return VoiceState{Note: note}
	}

	return b.voices[note].state(note)
}

// RunningSampleIndex returns the vibrato phase counter. It advances by half
// the frame count of each Render call.
func (b *Bank) RunningSampleIndex() int64 { return b.runningSampleIndex }
