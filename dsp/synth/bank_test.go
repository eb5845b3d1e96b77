package synth

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/filter/moog"
)

const blockSize = 512

func newTestBank(t testing.TB, opts ...core.EngineOption) *Bank {
	t.Helper()

	b, err := NewBank(opts...)
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}

	return b
}

func renderBlock(b *Bank, n int) (l, r []float64) {
	l = make([]float64, n)
	r = make([]float64, n)
	b.Render(n, l, r)

	return l, r
}

// requireListInvariant checks that the active list holds exactly the voices
// that are not off, once each, with consistent links and count.
func requireListInvariant(t *testing.T, b *Bank) {
	t.Helper()

	var seen [NumVoices]bool

	count := 0
	prev := none

	for idx := b.active.head; idx != none; idx = b.active.next[idx] {
		if idx < 0 || idx >= NumVoices {
			t.Fatalf("list index out of range: %d", idx)
		}

		if seen[idx] {
			t.Fatalf("voice %d linked twice", idx)
		}

		seen[idx] = true

		if b.active.prev[idx] != prev {
			t.Fatalf("voice %d prev=%d, want %d", idx, b.active.prev[idx], prev)
		}

		prev = idx
		count++
	}

	if count != b.ActiveCount() {
		t.Fatalf("ActiveCount()=%d, list length %d", b.ActiveCount(), count)
	}

	for n := range NumVoices {
		stage := b.Voice(n).Stage
		if seen[n] != (stage != StageOff) {
			t.Fatalf("voice %d stage=%v linked=%v", n, stage, seen[n])
		}
	}
}

func TestNewBankValidation(t *testing.T) {
	if _, err := NewBank(core.WithSampleRate(0)); err == nil {
		t.Fatal("expected error for zero sample rate")
	}

	if _, err := NewBank(core.WithMaxBlockSize(0)); err == nil {
		t.Fatal("expected error for zero block size")
	}

	b := newTestBank(t)
	if b.ActiveCount() != 0 || b.RunningSampleIndex() != 0 {
		t.Fatalf("new bank not idle: count=%d index=%d", b.ActiveCount(), b.RunningSampleIndex())
	}

	for n := range NumVoices {
		if st := b.Voice(n).Stage; st != StageOff {
			t.Fatalf("voice %d stage=%v, want off", n, st)
		}
	}

	requireListInvariant(t, b)
}

func TestVoiceLadderConfiguration(t *testing.T) {
	for _, tc := range []struct {
		sampleRate float64
		cutoff     float64
	}{
		{44100, NyquistReference},
		{22050, 11025},
	} {
		b := newTestBank(t, core.WithSampleRate(tc.sampleRate))

		for _, note := range []int{0, 69, NumVoices - 1} {
			f := b.voices[note].filter
			if f.Variant() != moog.VariantHuovilainen {
				t.Fatalf("sr=%v note %d: variant=%v", tc.sampleRate, note, f.Variant())
			}

			if f.CutoffHz() != tc.cutoff || f.Resonance() != 0 {
				t.Fatalf("sr=%v note %d: cutoff=%v resonance=%v", tc.sampleRate, note, f.CutoffHz(), f.Resonance())
			}
		}
	}
}

func TestNoteOnOffTransitionsEveryNote(t *testing.T) {
	b := newTestBank(t)

	b.NoteOn(10, 90)
	b.NoteOn(20, 90)
	b.NoteOn(30, 90)

	for n := range NumVoices {
		othersBefore := b.ActiveNotes(nil)
		wasOff := b.Voice(n).Stage == StageOff

		b.NoteOn(n, 100)

		if st := b.Voice(n).Stage; st != StageOn {
			t.Fatalf("note %d after note-on: stage=%v", n, st)
		}

		b.NoteOn(n, 0)

		st := b.Voice(n)
		if st.Stage != StageRelease || st.Gate != 0 {
			t.Fatalf("note %d after note-off: stage=%v gate=%v", n, st.Stage, st.Gate)
		}

		after := b.ActiveNotes(nil)

		// A newly activated voice is linked at the head; the others keep
		// their relative order.
		if wasOff {
			if after[0] != n {
				t.Fatalf("note %d not at head: %v", n, after)
			}

			after = after[1:]
		}

		for i := range othersBefore {
			if after[i] != othersBefore[i] {
				t.Fatalf("note %d disturbed list: before=%v after=%v", n, othersBefore, after)
			}
		}

		requireListInvariant(t, b)
	}

	for _, n := range []int{10, 20, 30} {
		if st := b.Voice(n).Stage; st != StageRelease {
			t.Fatalf("note %d stage=%v, want release", n, st)
		}
	}
}

func TestNoteOffIsIdempotent(t *testing.T) {
	b := newTestBank(t)
	b.NoteOn(60, 100)
	renderBlock(b, 64)

	b.NoteOn(60, 0)
	first := b.Voice(60)
	order := b.ActiveNotes(nil)

	b.NoteOn(60, 0)

	if got := b.Voice(60); got != first {
		t.Fatalf("second note-off changed state: %+v -> %+v", first, got)
	}

	if got := b.ActiveNotes(nil); len(got) != len(order) {
		t.Fatalf("second note-off changed list: %v -> %v", order, got)
	}

	b.NoteOff(61)

	if b.Voice(61).Stage != StageOff || b.ActiveCount() != 1 {
		t.Fatal("note-off on idle voice must be a no-op")
	}
}

func TestNoteOnIgnoresOutOfRange(t *testing.T) {
	b := newTestBank(t)

	b.NoteOn(-1, 100)
	b.NoteOn(NumVoices, 100)
	b.NoteOnFrequency(500, 100, 440)
	b.NoteOff(-3)

	if b.ActiveCount() != 0 {
		t.Fatalf("ActiveCount()=%d, want 0", b.ActiveCount())
	}

	if st := b.Voice(200); st.Stage != StageOff || st.Note != 200 {
		t.Fatalf("out-of-range Voice()=%+v", st)
	}
}

func TestVelocityMapping(t *testing.T) {
	b := newTestBank(t)

	tests := []struct {
		velocity int
		want     float64
	}{
		{velocity: 127, want: 1},
		{velocity: 64, want: (64.0 / 127) * (64.0 / 127)},
		{velocity: 1000, want: 1},
	}

	for _, tc := range tests {
		b.NoteOn(50, tc.velocity)

		if got := b.Voice(50).Level; math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("velocity %d: level=%v, want %v", tc.velocity, got, tc.want)
		}
	}

	b.NoteOn(51, -5)

	if b.Voice(51).Stage != StageOff {
		t.Fatal("negative velocity must behave as note-off")
	}
}

func TestRetriggerKeepsSingleEntry(t *testing.T) {
	b := newTestBank(t)

	b.NoteOn(60, 100)
	renderBlock(b, blockSize)
	b.NoteOn(60, 100)

	if b.ActiveCount() != 1 {
		t.Fatalf("ActiveCount()=%d, want 1", b.ActiveCount())
	}

	b.NoteOn(60, 40)

	st := b.Voice(60)
	if st.Stage != StageOn || st.Gate != 1 {
		t.Fatalf("retrigger state=%+v", st)
	}

	if math.Abs(st.Level-core.VelocityToAmplitude(40)) > 1e-12 {
		t.Fatalf("level=%v, want %v", st.Level, core.VelocityToAmplitude(40))
	}

	if math.Abs(st.Frequency-core.NoteToHz(60)) > 1e-9 {
		t.Fatalf("frequency=%v, want %v", st.Frequency, core.NoteToHz(60))
	}

	b.NoteOnFrequency(60, 100, 300)

	if got := b.Voice(60).Frequency; got != 300 {
		t.Fatalf("frequency=%v, want 300", got)
	}

	if b.ActiveCount() != 1 {
		t.Fatalf("ActiveCount()=%d, want 1", b.ActiveCount())
	}

	requireListInvariant(t, b)
}

func TestRetriggerDuringRelease(t *testing.T) {
	b := newTestBank(t)

	b.NoteOn(64, 100)
	renderBlock(b, blockSize)
	b.NoteOff(64)
	renderBlock(b, blockSize)

	b.NoteOn(64, 100)

	if st := b.Voice(64); st.Stage != StageOn || st.Gate != 1 {
		t.Fatalf("retrigger from release: %+v", st)
	}

	if b.ActiveCount() != 1 {
		t.Fatalf("ActiveCount()=%d, want 1", b.ActiveCount())
	}
}

func TestRetriggerResetsFilterCutoff(t *testing.T) {
	b := newTestBank(t)
	b.SetFilterCutoffFrequency(500)
	b.SetFilterSustainLevel(0)
	b.SetFilterDecayDuration(0.001)
	b.SetFilterAttackDuration(0.001)

	b.NoteOn(60, 100)

	for range 8 {
		renderBlock(b, blockSize)
	}

	if got := b.Voice(60).FilterCutoff; got > 600 {
		t.Fatalf("filter cutoff=%v, want near 500", got)
	}

	b.NoteOn(60, 100)

	if got := b.Voice(60).FilterCutoff; got != NyquistReference {
		t.Fatalf("filter cutoff after retrigger=%v, want %v", got, NyquistReference)
	}
}

func TestTerminationWithinOneRender(t *testing.T) {
	b := newTestBank(t)
	b.SetReleaseDuration(0.01)

	b.NoteOn(72, 100)
	renderBlock(b, blockSize)
	b.NoteOff(72)

	for i := 0; ; i++ {
		if i > 200 {
			t.Fatal("voice never terminated")
		}

		renderBlock(b, 128)

		st := b.Voice(72)
		if st.Stage == StageOff {
			break
		}

		if st.Stage == StageRelease && st.Amplitude < SilenceThreshold {
			t.Fatalf("render %d left a silent voice active: amplitude=%v", i, st.Amplitude)
		}
	}

	if b.ActiveCount() != 0 {
		t.Fatalf("ActiveCount()=%d, want 0", b.ActiveCount())
	}

	st := b.Voice(72)
	if st.Amplitude != 0 || st.FilterEnvelopeLevel != 0 || st.Gate != 0 {
		t.Fatalf("terminated voice not cleared: %+v", st)
	}

	l, r := renderBlock(b, blockSize)
	for i := range l {
		if l[i] != 0 || r[i] != 0 {
			t.Fatalf("output after termination at %d: %v %v", i, l[i], r[i])
		}
	}

	requireListInvariant(t, b)
}

func TestZeroReleaseTerminatesNextRender(t *testing.T) {
	b := newTestBank(t)
	b.SetReleaseDuration(0)

	b.NoteOn(40, 100)
	renderBlock(b, blockSize)
	b.NoteOff(40)
	renderBlock(b, 1)

	if b.ActiveCount() != 0 || b.Voice(40).Stage != StageOff {
		t.Fatalf("voice not removed: count=%d stage=%v", b.ActiveCount(), b.Voice(40).Stage)
	}
}

func TestNoteOnOffBeforeRenderTerminates(t *testing.T) {
	b := newTestBank(t)

	b.NoteOn(33, 100)
	b.NoteOff(33)
	renderBlock(b, 16)

	if b.ActiveCount() != 0 {
		t.Fatalf("ActiveCount()=%d, want 0", b.ActiveCount())
	}
}

func TestRandomSequencesKeepListInvariant(t *testing.T) {
	b := newTestBank(t, core.WithMaxBlockSize(64))
	b.SetAttackDuration(0.001)
	b.SetDecayDuration(0.001)
	b.SetReleaseDuration(0.002)

	rng := rand.New(rand.NewSource(7))
	l := make([]float64, 64)
	r := make([]float64, 64)

	for range 3000 {
		note := rng.Intn(NumVoices)

		switch op := rng.Intn(10); {
		case op < 4:
			b.NoteOn(note, 1+rng.Intn(127))
		case op < 7:
			b.NoteOff(note)
		default:
			b.Render(1+rng.Intn(64), l, r)
		}

		requireListInvariant(t, b)
	}

	for n := range NumVoices {
		b.NoteOff(n)
	}

	for range 200 {
		b.Render(64, l, r)
	}

	if b.ActiveCount() != 0 {
		t.Fatalf("ActiveCount()=%d after releasing everything", b.ActiveCount())
	}

	requireListInvariant(t, b)
}

func TestAllVoicesActive(t *testing.T) {
	b := newTestBank(t)

	for n := range NumVoices {
		b.NoteOn(n, 64)
	}

	if b.ActiveCount() != NumVoices {
		t.Fatalf("ActiveCount()=%d, want %d", b.ActiveCount(), NumVoices)
	}

	l, r := renderBlock(b, blockSize)
	for i := range l {
		if math.IsNaN(l[i]) || math.IsInf(l[i], 0) || l[i] != r[i] {
			t.Fatalf("sample %d: L=%v R=%v", i, l[i], r[i])
		}
	}

	requireListInvariant(t, b)
}

func TestResetSilencesEverything(t *testing.T) {
	b := newTestBank(t)

	b.NoteOn(60, 100)
	b.NoteOn(67, 100)
	b.SetPulseWidth(0.1)
	b.SetParameter(FilterCutoffFrequency, 800)
	renderBlock(b, blockSize)

	b.Reset()

	if b.ActiveCount() != 0 || b.RunningSampleIndex() != 0 {
		t.Fatalf("after Reset count=%d index=%d", b.ActiveCount(), b.RunningSampleIndex())
	}

	for _, info := range Parameters() {
		if got := b.Parameter(info.Address); got != info.Default {
			t.Fatalf("%s=%v after Reset, want %v", info.Name, got, info.Default)
		}

		if got := b.ParameterValue(info.Address); got != info.Default {
			t.Fatalf("%s value=%v after Reset, want %v", info.Name, got, info.Default)
		}
	}

	requireListInvariant(t, b)

	b.NoteOn(60, 100)

	if b.ActiveCount() != 1 {
		t.Fatalf("ActiveCount()=%d after Reset and note-on", b.ActiveCount())
	}
}

func TestStageString(t *testing.T) {
	for stage, want := range map[Stage]string{
		StageOff:     "off",
		StageOn:      "on",
		StageRelease: "release",
		Stage(9):     "unknown",
	} {
		if got := stage.String(); got != want {
			t.Fatalf("%d.String()=%q, want %q", stage, got, want)
		}
	}
}

func TestNoAllocationsOnNoteAndRender(t *testing.T) {
	b := newTestBank(t)
	l := make([]float64, blockSize)
	r := make([]float64, blockSize)

	allocs := testing.AllocsPerRun(50, func() {
		b.NoteOn(60, 100)
		b.NoteOn(64, 100)
		b.Render(blockSize, l, r)
		b.NoteOff(60)
		b.NoteOff(64)
		b.Render(blockSize, l, r)
	})

	if allocs != 0 {
		t.Fatalf("allocations per run = %v, want 0", allocs)
	}
}
