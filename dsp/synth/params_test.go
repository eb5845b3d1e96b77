package synth

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/internal/testutil"
)

func TestParameterTable(t *testing.T) {
	infos := Parameters()
	if len(infos) != NumParameters {
		t.Fatalf("Parameters()=%d entries, want %d", len(infos), NumParameters)
	}

	for i, info := range infos {
		if info.Address != Address(i) {
			t.Fatalf("entry %d has address %d", i, info.Address)
		}

		if info.Default < info.Min || info.Default > info.Max {
			t.Fatalf("%s default %v outside [%v, %v]", info.Name, info.Default, info.Min, info.Max)
		}

		got, ok := LookupParameter(info.Name)
		if !ok || got != info {
			t.Fatalf("LookupParameter(%q)=%+v, %v", info.Name, got, ok)
		}

		if info.Address.String() != info.Name {
			t.Fatalf("String()=%q, want %q", info.Address.String(), info.Name)
		}
	}

	if _, ok := LookupParameter("nope"); ok {
		t.Fatal("unexpected parameter lookup hit")
	}

	if Address(-1).Valid() || Address(NumParameters).Valid() {
		t.Fatal("out-of-range address reported valid")
	}

	if got := Address(99).String(); got != "unknown" {
		t.Fatalf("String()=%q, want unknown", got)
	}
}

func TestDefaults(t *testing.T) {
	b := newTestBank(t)

	want := map[Address]float64{
		PulseWidth:            0.5,
		FilterCutoffFrequency: NyquistReference,
		FilterResonance:       0,
		FilterAttackDuration:  0.1,
		FilterDecayDuration:   0.1,
		FilterSustainLevel:    1,
		FilterReleaseDuration: 0.1,
		AttackDuration:        0.1,
		DecayDuration:         0.1,
		SustainLevel:          1,
		ReleaseDuration:       0.1,
		PitchBend:             0,
		VibratoDepth:          0,
		VibratoRate:           0,
	}

	for addr, v := range want {
		if got := b.Parameter(addr); got != v {
			t.Fatalf("%v=%v, want %v", addr, got, v)
		}
	}
}

func TestSetParameterClamps(t *testing.T) {
	tests := []struct {
		addr  Address
		value float64
		want  float64
	}{
		{addr: FilterCutoffFrequency, value: 30000, want: NyquistReference},
		{addr: FilterCutoffFrequency, value: -5, want: 0},
		{addr: PulseWidth, value: 1.5, want: 1},
		{addr: PulseWidth, value: -0.5, want: 0},
		{addr: FilterResonance, value: 2, want: 1},
		{addr: FilterAttackDuration, value: 150, want: 99},
		{addr: FilterDecayDuration, value: -1, want: 0},
		{addr: FilterSustainLevel, value: 120, want: 99},
		{addr: FilterReleaseDuration, value: 100, want: 99},
		{addr: SustainLevel, value: 50, want: 50},
		{addr: PitchBend, value: -48, want: -24},
		{addr: VibratoDepth, value: 30, want: 24},
		{addr: VibratoRate, value: 1000, want: 600},
	}

	for _, tc := range tests {
		t.Run(tc.addr.String(), func(t *testing.T) {
			b := newTestBank(t, core.WithRampDuration(0))

			b.SetParameter(tc.addr, tc.value)

			if got := b.Parameter(tc.addr); got != tc.want {
				t.Fatalf("Parameter()=%v, want %v", got, tc.want)
			}

			renderBlock(b, 16)

			if got := b.ParameterValue(tc.addr); got != tc.want {
				t.Fatalf("ParameterValue()=%v after render, want %v", got, tc.want)
			}

			b.StartRamp(tc.addr, tc.value, 4)

			if got := b.Parameter(tc.addr); got != tc.want {
				t.Fatalf("ramp target=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestDirectSettersClampAndSync(t *testing.T) {
	b := newTestBank(t)

	setters := []struct {
		addr Address
		set  func(float64)
		in   float64
		want float64
	}{
		{AttackDuration, b.SetAttackDuration, 200, 99},
		{DecayDuration, b.SetDecayDuration, 0.25, 0.25},
		{SustainLevel, b.SetSustainLevel, -1, 0},
		{ReleaseDuration, b.SetReleaseDuration, 0.5, 0.5},
		{PitchBend, b.SetPitchBend, 30, 24},
		{VibratoDepth, b.SetVibratoDepth, 0.5, 0.5},
		{VibratoRate, b.SetVibratoRate, 6, 6},
		{PulseWidth, b.SetPulseWidth, 0.3, 0.3},
		{FilterCutoffFrequency, b.SetFilterCutoffFrequency, 1e6, NyquistReference},
		{FilterResonance, b.SetFilterResonance, 0.7, 0.7},
		{FilterAttackDuration, b.SetFilterAttackDuration, 1, 1},
		{FilterDecayDuration, b.SetFilterDecayDuration, 2, 2},
		{FilterSustainLevel, b.SetFilterSustainLevel, 0.4, 0.4},
		{FilterReleaseDuration, b.SetFilterReleaseDuration, 3, 3},
	}

	for _, s := range setters {
		s.set(s.in)

		if got := b.ParameterValue(s.addr); got != s.want {
			t.Fatalf("%v raw value=%v, want %v", s.addr, got, s.want)
		}

		if got := b.Parameter(s.addr); got != s.want {
			t.Fatalf("%v ramper value=%v, want %v", s.addr, got, s.want)
		}
	}

	// A direct set is not undone by the next block.
	renderBlock(b, 32)

	for _, s := range setters {
		if got := b.ParameterValue(s.addr); got != s.want {
			t.Fatalf("%v after render=%v, want %v", s.addr, got, s.want)
		}
	}
}

func TestStartRampStepsOncePerRender(t *testing.T) {
	b := newTestBank(t)

	b.StartRamp(PulseWidth, 0.1, 4)

	want := []float64{0.5, 0.4, 0.3, 0.2, 0.1, 0.1}
	for i, w := range want {
		renderBlock(b, blockSize)

		if got := b.ParameterValue(PulseWidth); math.Abs(got-w) > 1e-12 {
			t.Fatalf("block %d: pulse width=%v, want %v", i, got, w)
		}
	}
}

func TestSetParameterDezippers(t *testing.T) {
	b := newTestBank(t)

	frames := b.Config().RampFrames()
	if frames != 9 {
		t.Fatalf("RampFrames()=%d, want 9 at the default settings", frames)
	}

	b.SetParameter(FilterResonance, 0.9)

	renderBlock(b, 8)

	if got := b.ParameterValue(FilterResonance); math.Abs(got) > 1e-12 {
		t.Fatalf("first block after change=%v, want ramp start 0", got)
	}

	for range frames {
		renderBlock(b, 8)
	}

	if got := b.ParameterValue(FilterResonance); math.Abs(got-0.9) > 1e-12 {
		t.Fatalf("after ramp=%v, want 0.9", got)
	}
}

func TestSetParameterWithoutRampAppliesNextBlock(t *testing.T) {
	b := newTestBank(t, core.WithRampDuration(0))

	b.SetParameter(PulseWidth, 0.2)

	if got := b.ParameterValue(PulseWidth); got != 0.5 {
		t.Fatalf("value before render=%v, want 0.5", got)
	}

	renderBlock(b, 8)

	if got := b.ParameterValue(PulseWidth); got != 0.2 {
		t.Fatalf("value after render=%v, want 0.2", got)
	}
}

func TestUnknownAddressIgnored(t *testing.T) {
	b := newTestBank(t)

	b.SetParameter(Address(-1), 1)
	b.SetParameter(Address(NumParameters), 1)
	b.StartRamp(Address(100), 1, 10)

	if got := b.Parameter(Address(100)); got != 0 {
		t.Fatalf("Parameter(unknown)=%v, want 0", got)
	}

	if got := b.ParameterValue(Address(-7)); got != 0 {
		t.Fatalf("ParameterValue(unknown)=%v, want 0", got)
	}
}

func TestNaNIgnoredAndReleaseTerminates(t *testing.T) {
	b := newTestBank(t)
	nan := math.NaN()

	b.SetReleaseDuration(nan)
	b.SetAttackDuration(nan)
	b.SetParameter(DecayDuration, nan)
	b.SetParameter(ReleaseDuration, nan)
	b.StartRamp(ReleaseDuration, nan, 4)
	b.StartRamp(SustainLevel, nan, 4)

	for _, addr := range []Address{AttackDuration, DecayDuration, SustainLevel, ReleaseDuration} {
		def := parameterInfos[addr].Default
		if got := b.Parameter(addr); got != def {
			t.Fatalf("Parameter(%s)=%v after NaN, want %v", addr, got, def)
		}

		if got := b.ParameterValue(addr); got != def {
			t.Fatalf("ParameterValue(%s)=%v after NaN, want %v", addr, got, def)
		}
	}

	b.NoteOn(69, 100)
	renderBlock(b, blockSize)
	b.NoteOff(69)

	for range 400 {
		l, _ := renderBlock(b, blockSize)
		testutil.RequireFinite(t, l)

		if b.ActiveCount() == 0 {
			return
		}
	}

	t.Fatalf("released voice still active: %+v", b.Voice(69))
}
