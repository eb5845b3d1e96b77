// Package audioout moves rendered voice-bank audio to its destinations: a
// pull-based byte stream for live playback through oto, and 16-bit WAV files
// through go-audio.
package audioout
