package audioout

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player plays an interleaved float32 stereo stream on the default audio
// device.
type Player struct {
	ctx    *oto.Context
	player *oto.Player

	mu      sync.Mutex
	started bool
}

// NewPlayer opens the audio device at sampleRate and binds src to it.
// bufferSize is the device buffer duration; 0 selects oto's default.
// Only one Player may exist per process.
func NewPlayer(sampleRate int, src io.Reader, bufferSize time.Duration) (*Player, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audioout: sample rate must be > 0: %d", sampleRate)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("audioout: open device: %w", err)
	}
	<-ready

	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(src),
	}, nil
}

// Start begins playback. Calling it twice is a no-op.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.player.Play()
		p.started = true
	}
}

// IsPlaying reports whether the device is pulling audio.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started && p.player.IsPlaying()
}

// Close stops playback and releases the player.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false

	return p.player.Close()
}
