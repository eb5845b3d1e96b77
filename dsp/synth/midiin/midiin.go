// Package midiin decodes MIDI channel messages into voice-bank events.
//
// Decoding happens on the MIDI goroutine. Events cross to the render
// goroutine through a [Queue], which the render side drains at block start.
package midiin

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// ModWheel is the controller number mapped onto vibrato depth.
const ModWheel = 1

// DefaultBendRange is the pitch-bend range in semitones for a full wheel deflection.
const DefaultBendRange = 2.0

// DefaultModDepth is the vibrato depth in semitones for a fully raised mod wheel.
const DefaultModDepth = 1.0

// Target receives decoded events. *synth.Bank satisfies it.
type Target interface {
	NoteOn(note, velocity int)
	NoteOff(note int)
	SetPitchBend(semitones float64)
	SetVibratoDepth(semitones float64)
}

// Kind identifies an event.
type Kind uint8

const (
	// KindNone is the zero Event and is ignored by Apply.
	KindNone Kind = iota
	// KindNoteOn starts Note at Velocity.
	KindNoteOn
	// KindNoteOff releases Note.
	KindNoteOff
	// KindPitchBend sets the global pitch offset to Value semitones.
	KindPitchBend
	// KindVibratoDepth sets the vibrato depth to Value semitones.
	KindVibratoDepth
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	case KindPitchBend:
		return "pitch-bend"
	case KindVibratoDepth:
		return "vibrato-depth"
	default:
		return "none"
	}
}

// Event is a decoded bank event. Note and Velocity are used by note events,
// Value by modulation events.
type Event struct {
	Kind     Kind
	Note     int
	Velocity int
	Value    float64
}

// Apply delivers the event to t.
func (e Event) Apply(t Target) {
	switch e.Kind {
	case KindNoteOn:
		t.NoteOn(e.Note, e.Velocity)
	case KindNoteOff:
		t.NoteOff(e.Note)
	case KindPitchBend:
		t.SetPitchBend(e.Value)
	case KindVibratoDepth:
		t.SetVibratoDepth(e.Value)
	}
}

func (e Event) String() string {
	switch e.Kind {
	case KindNoteOn:
		return fmt.Sprintf("%s %d/%d", e.Kind, e.Note, e.Velocity)
	case KindNoteOff:
		return fmt.Sprintf("%s %d", e.Kind, e.Note)
	case KindNone:
		return e.Kind.String()
	default:
		return fmt.Sprintf("%s %.4g", e.Kind, e.Value)
	}
}

// Decoder converts MIDI messages into events.
type Decoder struct {
	bendRange float64
	modDepth  float64
	channel   int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder) error

// WithBendRange sets the semitone range of a full pitch-wheel deflection.
func WithBendRange(semitones float64) DecoderOption {
	return func(d *Decoder) error {
		if semitones < 0 || semitones > 24 {
			return fmt.Errorf("midiin: bend range must be in [0, 24]: %f", semitones)
		}

		d.bendRange = semitones

		return nil
	}
}

// WithModDepth sets the vibrato depth in semitones at full mod-wheel position.
func WithModDepth(semitones float64) DecoderOption {
	return func(d *Decoder) error {
		if semitones < 0 || semitones > 24 {
			return fmt.Errorf("midiin: mod depth must be in [0, 24]: %f", semitones)
		}

		d.modDepth = semitones

		return nil
	}
}

// WithChannel restricts decoding to one channel (0-15). Negative accepts all.
func WithChannel(ch int) DecoderOption {
	return func(d *Decoder) error {
		if ch > 15 {
			return fmt.Errorf("midiin: channel must be <= 15: %d", ch)
		}

		d.channel = ch

		return nil
	}
}

// NewDecoder returns a decoder listening on all channels with the default
// bend range and mod depth.
func NewDecoder(opts ...DecoderOption) (*Decoder, error) {
	d := &Decoder{
		bendRange: DefaultBendRange,
		modDepth:  DefaultModDepth,
		channel:   -1,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// BendRange returns the configured pitch-bend range in semitones.
func (d *Decoder) BendRange() float64 { return d.bendRange }

// Decode converts msg into an event. ok is false for messages the bank does
// not react to or that arrive on a filtered channel.
func (d *Decoder) Decode(msg midi.Message) (ev Event, ok bool) {
	ch, ev, ok := d.decode(msg)
	if !ok || !d.accepts(ch) {
		return Event{}, false
	}

	return ev, true
}

func (d *Decoder) decode(msg midi.Message) (uint8, Event, bool) {
	var (
		ch, key, vel, cc, val uint8
		rel                   int16
		abs                   uint16
	)

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return ch, Event{Kind: KindNoteOn, Note: int(key), Velocity: int(vel)}, true

	case msg.GetNoteEnd(&ch, &key):
		return ch, Event{Kind: KindNoteOff, Note: int(key)}, true

	case msg.GetPitchBend(&ch, &rel, &abs):
		return ch, Event{Kind: KindPitchBend, Value: bendSemitones(rel, d.bendRange)}, true

	case msg.GetControlChange(&ch, &cc, &val) && cc == ModWheel:
		return ch, Event{Kind: KindVibratoDepth, Value: float64(val) / 127 * d.modDepth}, true

	default:
		return 0, Event{}, false
	}
}

// Dispatch decodes msg and applies it to t directly. Use it when decoding
// runs on the render goroutine.
func (d *Decoder) Dispatch(t Target, msg midi.Message) bool {
	ev, ok := d.Decode(msg)
	if !ok {
		return false
	}

	ev.Apply(t)

	return true
}

func (d *Decoder) accepts(ch uint8) bool {
	return d.channel < 0 || int(ch) == d.channel
}

// bendSemitones maps a signed 14-bit wheel value onto [-rangeSemis, rangeSemis].
// The positive side reaches full range at 8191.
func bendSemitones(rel int16, rangeSemis float64) float64 {
	if rel >= 0 {
		return float64(rel) / 8191 * rangeSemis
	}

	return float64(rel) / 8192 * rangeSemis
}
