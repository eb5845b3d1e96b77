package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/synth"
	"github.com/cwbudde/algo-synth/dsp/window"
	"github.com/cwbudde/algo-synth/measure/pitch"
)

type windowEntry struct {
	name string
	typ  window.Type
}

var windows = []windowEntry{
	{"hann", window.TypeHann},
	{"hamming", window.TypeHamming},
	{"blackman", window.TypeBlackman},
	{"blackman-harris-4t", window.TypeBlackmanHarris4Term},
	{"flat-top", window.TypeFlatTop},
}

func lookupWindow(name string) (windowEntry, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range windows {
		if e.name == name {
			return e, true
		}
	}

	return windowEntry{}, false
}

type paramSet struct {
	info  synth.ParameterInfo
	value float64
}

// paramFlags collects repeated -set name=value flags.
type paramFlags []paramSet

func (p *paramFlags) String() string {
	parts := make([]string, len(*p))
	for i, s := range *p {
		parts[i] = fmt.Sprintf("%s=%g", s.info.Name, s.value)
	}

	return strings.Join(parts, ",")
}

func (p *paramFlags) Set(arg string) error {
	name, raw, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", arg)
	}

	info, ok := synth.LookupParameter(strings.TrimSpace(name))
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("parameter %s: %w", info.Name, err)
	}

	if v < info.Min || v > info.Max {
		return fmt.Errorf("parameter %s: %g outside [%g, %g]", info.Name, v, info.Min, info.Max)
	}

	*p = append(*p, paramSet{info: info, value: v})

	return nil
}

func parseNotes(s string) ([]int, error) {
	var notes []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("note %q: %w", f, err)
		}

		if n < 0 || n >= synth.NumVoices {
			return nil, fmt.Errorf("note %d outside [0, %d]", n, synth.NumVoices-1)
		}

		notes = append(notes, n)
	}

	if len(notes) == 0 {
		return nil, fmt.Errorf("no notes given")
	}

	return notes, nil
}

type score struct {
	sampleRate int
	blockSize  int
	notes      []int
	velocity   int
	hold       float64
	tail       float64
	params     paramFlags
}

type rendered struct {
	left, right []float64
	heldFrames  int
	blocks      int
	// silent reports whether every voice terminated before the tail ran out.
	silent bool
}

func (sc score) render() (rendered, error) {
	if sc.velocity < 1 || sc.velocity > core.MaxVelocity {
		return rendered{}, fmt.Errorf("velocity must be in [1, %d]: %d", core.MaxVelocity, sc.velocity)
	}

	if sc.hold < 0 || sc.tail < 0 {
		return rendered{}, fmt.Errorf("hold and tail must be >= 0")
	}

	bank, err := synth.NewBank(
		core.WithSampleRate(float64(sc.sampleRate)),
		core.WithMaxBlockSize(sc.blockSize),
	)
	if err != nil {
		return rendered{}, err
	}

	for _, p := range sc.params {
		bank.StartRamp(p.info.Address, p.value, 0)
	}

	for _, n := range sc.notes {
		bank.NoteOn(n, sc.velocity)
	}

	heldFrames := int(math.Round(sc.hold * float64(sc.sampleRate)))
	tailFrames := int(math.Round(sc.tail * float64(sc.sampleRate)))

	r := rendered{
		left:       make([]float64, heldFrames+tailFrames),
		right:      make([]float64, heldFrames+tailFrames),
		heldFrames: heldFrames,
	}

	pos := 0
	renderUntil := func(end int, stopWhenSilent bool) {
		for pos < end {
			if stopWhenSilent && bank.ActiveCount() == 0 {
				return
			}

			n := min(sc.blockSize, end-pos)
			bank.Render(n, r.left[pos:pos+n], r.right[pos:pos+n])
			pos += n
			r.blocks++
		}
	}

	renderUntil(heldFrames, false)

	for _, n := range sc.notes {
		bank.NoteOff(n)
	}

	renderUntil(heldFrames+tailFrames, true)

	r.silent = bank.ActiveCount() == 0
	r.left = r.left[:pos]
	r.right = r.right[:pos]

	return r, nil
}

// measureHeld estimates the pitch of the sustained part of the left channel,
// skipping the first quarter of the hold to let envelopes settle.
func measureHeld(r rendered, sc score, wt window.Type) (pitch.Result, error) {
	start := r.heldFrames / 4
	avail := r.heldFrames - start

	size := 1
	for size*2 <= avail && size < 1<<16 {
		size *= 2
	}

	if size < 1024 {
		return pitch.Result{}, fmt.Errorf("hold too short for analysis: %d frames", avail)
	}

	return pitch.Estimate(r.left[start:start+size], pitch.Config{
		SampleRate:     float64(sc.sampleRate),
		FFTSize:        size,
		RangeLowerFreq: 10,
		RangeUpperFreq: float64(sc.sampleRate) / 2,
		WindowType:     wt,
	})
}
