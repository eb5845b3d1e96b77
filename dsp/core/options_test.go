package core

import "testing"

func TestNewEngineConfigDefaults(t *testing.T) {
	cfg, err := NewEngineConfig()
	if err != nil {
		t.Fatalf("NewEngineConfig() error = %v", err)
	}
	if cfg != DefaultEngineConfig() {
		t.Fatalf("cfg = %#v, want %#v", cfg, DefaultEngineConfig())
	}
	if got := cfg.RampFrames(); got != 9 {
		t.Fatalf("RampFrames() = %d, want 9", got)
	}
}

func TestNewEngineConfigOptions(t *testing.T) {
	cfg, err := NewEngineConfig(WithSampleRate(48000), WithMaxBlockSize(1024), WithRampDuration(0.01), nil)
	if err != nil {
		t.Fatalf("NewEngineConfig() error = %v", err)
	}
	if cfg.SampleRate != 48000 {
		t.Fatalf("sample rate = %v, want 48000", cfg.SampleRate)
	}
	if cfg.MaxBlockSize != 1024 {
		t.Fatalf("max block size = %d, want 1024", cfg.MaxBlockSize)
	}
	if got := cfg.RampFrames(); got != 480 {
		t.Fatalf("RampFrames() = %d, want 480", got)
	}
}

func TestNewEngineConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  EngineOption
	}{
		{name: "zero sample rate", opt: WithSampleRate(0)},
		{name: "negative block", opt: WithMaxBlockSize(-1)},
		{name: "negative ramp", opt: WithRampDuration(-0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngineConfig(tt.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
