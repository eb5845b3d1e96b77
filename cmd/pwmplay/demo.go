package main

import (
	"context"
	"time"

	"github.com/cwbudde/algo-synth/dsp/synth/midiin"
)

type demoStep struct {
	note int
	hold time.Duration
}

var demoPattern = []demoStep{
	{57, 250 * time.Millisecond},
	{60, 250 * time.Millisecond},
	{64, 250 * time.Millisecond},
	{69, 500 * time.Millisecond},
	{64, 250 * time.Millisecond},
	{60, 500 * time.Millisecond},
}

// demoEvents returns the note events for one pass of the pattern, each paired
// with the delay before it.
func demoEvents(pattern []demoStep, velocity int) ([]midiin.Event, []time.Duration) {
	evs := make([]midiin.Event, 0, 2*len(pattern))
	waits := make([]time.Duration, 0, 2*len(pattern))

	for _, s := range pattern {
		evs = append(evs, midiin.Event{Kind: midiin.KindNoteOn, Note: s.note, Velocity: velocity})
		waits = append(waits, 0)
		evs = append(evs, midiin.Event{Kind: midiin.KindNoteOff, Note: s.note})
		waits = append(waits, s.hold)
	}

	return evs, waits
}

// playDemo loops the pattern until ctx is done, then releases every note.
func playDemo(ctx context.Context, events *midiin.Queue) {
	evs, waits := demoEvents(demoPattern, 100)
	vibrato := 0.0

	for {
		for i, ev := range evs {
			if waits[i] > 0 {
				select {
				case <-ctx.Done():
					releaseAll(events)
					return
				case <-time.After(waits[i]):
				}
			}

			events.Push(ev)
		}

		// Alternate plain and vibrato passes.
		vibrato = 0.3 - vibrato
		events.Push(midiin.Event{Kind: midiin.KindVibratoDepth, Value: vibrato})
		logger.Debug("demo pass", "vibratoDepth", vibrato)
	}
}

func releaseAll(events *midiin.Queue) {
	for _, s := range demoPattern {
		events.Push(midiin.Event{Kind: midiin.KindNoteOff, Note: s.note})
	}
	// let the stream pick up the releases before the device closes
	time.Sleep(200 * time.Millisecond)
}
