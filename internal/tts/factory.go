package tts

import (
	"fmt"
	"time"

	"github.com/loqalabs/loqa-voiceclone/internal/config"
)

// New builds the backend selected by cfg.Mode.
func New(cfg config.SynthesisConfig) (Synthesizer, error) {
	switch cfg.Mode {
	case "mock", "":
		return NewMockSynth(cfg.SampleRate), nil
	case "exec":
		return NewExecSynth(cfg.Command)
	case "http":
		return NewHTTPSynth(cfg.Endpoint, cfg.Model, time.Duration(cfg.TimeoutMS)*time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unsupported synthesis mode %q", cfg.Mode)
	}
}
