// Package synth implements a polyphonic pulse-width-modulated oscillator
// bank.
//
// A Bank owns one voice slot per MIDI note number. Each slot carries a
// band-limited pulse oscillator, a Moog ladder filter and two ADSR
// envelopes (amplitude and filter), all allocated once by NewBank.
// Sounding voices are threaded on an index-based active list so Render only
// touches voices that produce output.
//
// Bank-wide parameters are smoothed by param.Ramper instances that advance
// once per Render call. Values are clamped on entry; the render path never
// returns errors.
//
// A Bank is not safe for concurrent use. Note events, parameter changes and
// Render must be serialized by the caller, typically by running them all on
// the audio callback goroutine (see package midiin for a lock-free hand-off).
package synth
