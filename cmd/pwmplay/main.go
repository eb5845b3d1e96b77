// Command pwmplay plays the PWM voice bank live on the default audio device.
//
// Usage:
//
//	pwmplay [flags]
//
// With -midi the named input port drives the bank: notes, pitch bend and the
// mod wheel (vibrato depth). Without it a short arpeggio repeats until
// interrupted or -duration elapses.
//
// Examples:
//
//	pwmplay
//	pwmplay -midi-list
//	pwmplay -midi "Keystation" -bend 12
//	pwmplay -duration 10s -rate 5
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/synth"
	"github.com/cwbudde/algo-synth/dsp/synth/midiin"
	"github.com/cwbudde/algo-synth/internal/audioout"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
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

type options struct {
	sampleRate int
	blockSize  int
	buffer     time.Duration
	midiPort   string
	bendRange  float64
	modDepth   float64
	rate       float64
	width      float64
	duration   time.Duration
}

func main() {
	var o options
	flag.IntVar(&o.sampleRate, "sr", 44100, "sample rate in Hz")
	flag.IntVar(&o.blockSize, "block", 256, "render block size in frames")
	flag.DurationVar(&o.buffer, "buffer", 50*time.Millisecond, "device buffer duration")
	flag.StringVar(&o.midiPort, "midi", "", "MIDI input port (substring match)")
	flag.Float64Var(&o.bendRange, "bend", midiin.DefaultBendRange, "pitch-bend range in semitones")
	flag.Float64Var(&o.modDepth, "mod", midiin.DefaultModDepth, "vibrato depth in semitones at full mod wheel")
	flag.Float64Var(&o.rate, "rate", 5, "vibrato rate in Hz")
	flag.Float64Var(&o.width, "width", 0.5, "pulse width")
	flag.DurationVar(&o.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	listPorts := flag.Bool("midi-list", false, "list MIDI input ports")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	initLogger(*debug)

	if *listPorts {
		if err := printPorts(); err != nil {
			logger.Error("listing MIDI inputs failed", "err", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	if err := run(ctx, o); err != nil {
		logger.Error("pwmplay failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	bank, err := synth.NewBank(
		core.WithSampleRate(float64(o.sampleRate)),
		core.WithMaxBlockSize(o.blockSize),
	)
	if err != nil {
		return err
	}

	bank.SetVibratoRate(o.rate)
	bank.SetPulseWidth(o.width)

	events, err := midiin.NewQueue(1024)
	if err != nil {
		return err
	}

	dec, err := midiin.NewDecoder(midiin.WithBendRange(o.bendRange), midiin.WithModDepth(o.modDepth))
	if err != nil {
		return err
	}

	stream, err := audioout.NewStream(bank, audioout.WithBlockSize(o.blockSize), audioout.WithEvents(events))
	if err != nil {
		return err
	}

	player, err := audioout.NewPlayer(o.sampleRate, stream, o.buffer)
	if err != nil {
		return err
	}
	defer player.Close()

	player.Start()
	logger.Info("playing", "sampleRate", o.sampleRate, "block", o.blockSize, "buffer", o.buffer)

	if o.midiPort != "" {
		closeMidi, err := listenMIDI(o.midiPort, dec, events)
		if err != nil {
			return err
		}
		defer closeMidi()

		<-ctx.Done()
	} else {
		playDemo(ctx, events)
	}

	logger.Info("stopping",
		"frames", stream.Frames(),
		"droppedEvents", events.Dropped(),
	)

	return nil
}

func printPorts() error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("open MIDI driver: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("list MIDI inputs: %w", err)
	}

	for _, in := range ins {
		fmt.Println(in.String())
	}

	return nil
}

func listenMIDI(name string, dec *midiin.Decoder, events *midiin.Queue) (func(), error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open MIDI driver: %w", err)
	}

	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}

	var found drivers.In
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(name)) {
			found = in
			break
		}
	}

	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("MIDI input %q not found", name)
	}

	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open MIDI input %q: %w", found.String(), err)
	}

	stopListen, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		ev, ok := dec.Decode(msg)
		if !ok {
			logger.Debug("unhandled MIDI message", "msg", msg.String())
			return
		}

		if !events.Push(ev) {
			logger.Warn("event queue full, dropping", "event", ev.String())
		}
	}, midi.HandleError(func(err error) {
		logger.Warn("MIDI listener error", "device", found.String(), "err", err)
	}))
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("listen on %q: %w", found.String(), err)
	}

	logger.Info("MIDI input connected", "device", found.String())

	return func() {
		stopListen()
		_ = found.Close()
		drv.Close()
		logger.Info("MIDI input closed", "device", found.String())
	}, nil
}
