package audioout

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVBitDepth is the sample depth written by WriteWAV.
const WAVBitDepth = 16

// WriteWAV writes left and right as a 16-bit stereo PCM WAV. Samples are
// clipped to [-1, 1].
func WriteWAV(w io.WriteSeeker, sampleRate int, left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("audioout: channel length mismatch: %d != %d", len(left), len(right))
	}

	if sampleRate <= 0 {
		return fmt.Errorf("audioout: sample rate must be > 0: %d", sampleRate)
	}

	enc := wav.NewEncoder(w, sampleRate, WAVBitDepth, 2, 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, 2*len(left)),
		SourceBitDepth: WAVBitDepth,
	}
	for i := range left {
		buf.Data[2*i] = toPCM16(left[i])
		buf.Data[2*i+1] = toPCM16(right[i])
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audioout: write wav: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("audioout: close wav: %w", err)
	}

	return nil
}

func toPCM16(x float64) int {
	if math.IsNaN(x) {
		return 0
	}

	x = math.Max(-1, math.Min(1, x))

	return int(math.Round(x * 32767))
}
