// Command pwmrender renders notes through the PWM voice bank to a WAV file.
//
// Usage:
//
//	pwmrender [flags]
//
// The notes sound together for -hold seconds, are released, and rendering
// continues until every voice has decayed or -tail seconds have passed.
//
// Examples:
//
//	pwmrender -notes 69 -out a4.wav
//	pwmrender -notes 60,64,67 -set pulseWidth=0.2 -set filterCutoffFrequency=800
//	pwmrender -notes 45 -set filterResonance=0.9 -set filterDecayDuration=0.4 -set filterSustainLevel=0
//	pwmrender -list
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/synth"
	"github.com/cwbudde/algo-synth/dsp/window"
	"github.com/cwbudde/algo-synth/internal/audioout"
	"github.com/cwbudde/algo-vecmath"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	out := flag.String("out", "pwm.wav", "output WAV path")
	sampleRate := flag.Int("sr", 44100, "sample rate in Hz")
	block := flag.Int("block", 256, "render block size in frames")
	notes := flag.String("notes", "69", "comma-separated MIDI note numbers")
	velocity := flag.Int("velocity", 100, "note-on velocity (1-127)")
	hold := flag.Float64("hold", 1.0, "seconds before note-off")
	tail := flag.Float64("tail", 2.0, "maximum seconds rendered after note-off")
	win := flag.String("window", "hann", "analysis window for the pitch report")
	list := flag.Bool("list", false, "list parameters and analysis windows")
	debug := flag.Bool("debug", false, "enable debug logging")

	var sets paramFlags
	flag.Var(&sets, "set", "parameter assignment name=value (repeatable)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pwmrender [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders notes through the PWM voice bank to a 16-bit stereo WAV file.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pwmrender -notes 69 -out a4.wav\n")
		fmt.Fprintf(os.Stderr, "  pwmrender -notes 60,64,67 -set pulseWidth=0.2\n")
		fmt.Fprintf(os.Stderr, "  pwmrender -list\n")
	}
	flag.Parse()

	initLogger(*debug)

	if *list {
		if err := printList(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		return
	}

	keys, err := parseNotes(*notes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	wt, ok := lookupWindow(*win)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown window %q (use -list to see available)\n", *win)
		os.Exit(2)
	}

	sc := score{
		sampleRate: *sampleRate,
		blockSize:  *block,
		notes:      keys,
		velocity:   *velocity,
		hold:       *hold,
		tail:       *tail,
		params:     sets,
	}

	if err := run(sc, *out, wt); err != nil {
		logger.Error("render failed", "err", err)
		os.Exit(1)
	}
}

func run(sc score, path string, wt windowEntry) error {
	logger.Info("rendering",
		"notes", sc.notes,
		"velocity", sc.velocity,
		"sampleRate", sc.sampleRate,
		"hold", sc.hold,
		"tail", sc.tail,
	)

	r, err := sc.render()
	if err != nil {
		return err
	}

	logger.Debug("render finished",
		"frames", len(r.left),
		"heldFrames", r.heldFrames,
		"blocks", r.blocks,
		"silentAfterRelease", r.silent,
	)

	peak := max(vecmath.MaxAbs(r.left), vecmath.MaxAbs(r.right))
	logger.Info("level", "peak", peak, "clipped", peak > 1)

	if len(sc.notes) == 1 {
		report(r, sc, wt)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := audioout.WriteWAV(f, sc.sampleRate, r.left, r.right); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	logger.Info("wrote", "path", path, "seconds", float64(len(r.left))/float64(sc.sampleRate))

	return nil
}

func report(r rendered, sc score, wt windowEntry) {
	res, err := measureHeld(r, sc, wt.typ)
	if err != nil {
		logger.Warn("pitch analysis skipped", "err", err)
		return
	}

	want := core.NoteToHz(sc.notes[0])
	logger.Info("pitch",
		"window", wt.name,
		"measuredHz", fmt.Sprintf("%.2f", res.Frequency),
		"expectedHz", fmt.Sprintf("%.2f", want),
		"thd", fmt.Sprintf("%.4f", res.THD),
	)
}

func printList(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Parameter\tMin\tMax\tDefault\n")
	fmt.Fprintf(tw, "---------\t---\t---\t-------\n")

	for _, p := range synth.Parameters() {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\n", p.Name, p.Min, p.Max, p.Default)
	}

	fmt.Fprintf(tw, "\nWindow\tENBW (bins)\tSidelobe (dB)\tCoherent gain\n")
	fmt.Fprintf(tw, "------\t-----------\t-------------\t-------------\n")

	sorted := append([]windowEntry(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	for _, e := range sorted {
		m := window.Info(e.typ)
		gain := window.CoherentGain(window.Generate(e.typ, 4096, window.WithPeriodic()))
		fmt.Fprintf(tw, "%s\t%.2f\t%.0f\t%.3f\n", e.name, m.ENBW, m.HighestSidelobe, gain)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	return nil
}
