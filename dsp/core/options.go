package core

import (
	"fmt"
	"math"
)

const (
	// DefaultSampleRate is the rate the bank's Nyquist reference assumes.
	DefaultSampleRate = 44100.0
	// DefaultMaxBlockSize is the largest block rendered without growing
	// internal scratch buffers.
	DefaultMaxBlockSize = 512
	// DefaultRampDuration is the dezipper time in seconds applied when a
	// parameter target changes without an explicit ramp.
	DefaultRampDuration = 0.0002
)

// EngineConfig defines the settings shared by every voice of a bank.
type EngineConfig struct {
	SampleRate   float64
	MaxBlockSize int
	RampDuration float64
}

// EngineOption mutates an EngineConfig.
type EngineOption func(*EngineConfig)

// DefaultEngineConfig returns the defaults used when no option is given.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SampleRate:   DefaultSampleRate,
		MaxBlockSize: DefaultMaxBlockSize,
		RampDuration: DefaultRampDuration,
	}
}

// WithSampleRate sets the processing sample rate in Hz.
func WithSampleRate(sampleRate float64) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.SampleRate = sampleRate
	}
}

// WithMaxBlockSize sets the expected upper bound of frames per render call.
func WithMaxBlockSize(blockSize int) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.MaxBlockSize = blockSize
	}
}

// WithRampDuration sets the dezipper ramp time in seconds. Zero disables
// dezippering so parameter targets apply on the next block.
func WithRampDuration(seconds float64) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.RampDuration = seconds
	}
}

// NewEngineConfig applies opts to the defaults and validates the result.
func NewEngineConfig(opts ...EngineOption) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}

	return cfg, nil
}

// Validate reports the first invalid field of cfg.
func (cfg EngineConfig) Validate() error {
	if math.IsNaN(cfg.SampleRate) || math.IsInf(cfg.SampleRate, 0) || cfg.SampleRate <= 0 {
		return fmt.Errorf("core: sample rate must be > 0 and finite: %f", cfg.SampleRate)
	}

	if cfg.MaxBlockSize <= 0 {
		return fmt.Errorf("core: max block size must be > 0: %d", cfg.MaxBlockSize)
	}

	if math.IsNaN(cfg.RampDuration) || cfg.RampDuration < 0 {
		return fmt.Errorf("core: ramp duration must be >= 0: %f", cfg.RampDuration)
	}

	return nil
}

// RampFrames converts the configured ramp duration to whole frames.
func (cfg EngineConfig) RampFrames() int {
	return int(math.Round(cfg.RampDuration * cfg.SampleRate))
}
