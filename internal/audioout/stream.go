package audioout

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-synth/dsp/synth"
	"github.com/cwbudde/algo-synth/dsp/synth/midiin"
)

// BytesPerFrame is the size of one interleaved stereo float32 frame.
const BytesPerFrame = 2 * 4

const defaultBlockSize = 256

// Stream renders a bank on demand and encodes the result as interleaved
// little-endian float32 stereo. It is the io.Reader handed to the audio
// device. Read must be called from a single goroutine, which becomes the
// render context; other goroutines reach the bank through the event queue.
type Stream struct {
	bank      *synth.Bank
	events    *midiin.Queue
	blockSize int

	left, right []float64
	pending     []byte
	pendingPos  int

	frames atomic.Int64
}

// StreamOption configures a Stream.
type StreamOption func(*Stream) error

// WithBlockSize sets the frames rendered per Bank.Render call.
func WithBlockSize(frames int) StreamOption {
	return func(s *Stream) error {
		if frames <= 0 {
			return fmt.Errorf("audioout: block size must be > 0: %d", frames)
		}

		s.blockSize = frames

		return nil
	}
}

// WithEvents attaches a queue drained at the start of every block.
func WithEvents(q *midiin.Queue) StreamOption {
	return func(s *Stream) error {
		s.events = q
		return nil
	}
}

// NewStream returns a stream rendering bank. The default block size is 256
// frames, capped at the bank's configured maximum block size.
func NewStream(bank *synth.Bank, opts ...StreamOption) (*Stream, error) {
	if bank == nil {
		return nil, fmt.Errorf("audioout: nil bank")
	}

	s := &Stream{
		bank:      bank,
		blockSize: min(defaultBlockSize, bank.Config().MaxBlockSize),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.left = make([]float64, s.blockSize)
	s.right = make([]float64, s.blockSize)
	s.pending = make([]byte, s.blockSize*BytesPerFrame)
	s.pendingPos = len(s.pending)

	return s, nil
}

// BlockSize returns the frames rendered per block.
func (s *Stream) BlockSize() int { return s.blockSize }

// Frames returns the number of frames rendered so far. Safe to call from any
// goroutine.
func (s *Stream) Frames() int64 { return s.frames.Load() }

// Read fills p with rendered audio. It never returns an error and always
// fills p completely; partial frames carry over to the next call.
func (s *Stream) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if s.pendingPos == len(s.pending) {
			s.renderBlock()
		}

		c := copy(p[n:], s.pending[s.pendingPos:])
		s.pendingPos += c
		n += c
	}

	return n, nil
}

func (s *Stream) renderBlock() {
	if s.events != nil {
		s.events.Drain(s.bank)
	}

	clear(s.left)
	clear(s.right)
	s.bank.Render(s.blockSize, s.left, s.right)
	EncodeFloat32LE(s.pending, s.left, s.right)

	s.pendingPos = 0
	s.frames.Add(int64(s.blockSize))
}

// EncodeFloat32LE interleaves left and right into dst as little-endian
// float32 samples. dst must hold len(left)*BytesPerFrame bytes.
func EncodeFloat32LE(dst []byte, left, right []float64) {
	for i := range left {
		o := i * BytesPerFrame
		binary.LittleEndian.PutUint32(dst[o:], math.Float32bits(float32(left[i])))
		binary.LittleEndian.PutUint32(dst[o+4:], math.Float32bits(float32(right[i])))
	}
}
