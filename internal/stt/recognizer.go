package stt

import (
	"context"
	"fmt"

	"github.com/loqalabs/loqa-voiceclone/internal/config"
)

// TranscriptResult captures recognizer output.
type TranscriptResult struct {
	Text       string
	Confidence float64
}

// Recognizer transcribes a recorded WAV file.
type Recognizer interface {
	Transcribe(ctx context.Context, wavPath string) (TranscriptResult, error)
}

// New returns nil when transcription is disabled.
func New(cfg config.STTConfig) (Recognizer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Mode {
	case "mock":
		return NewMockRecognizer(""), nil
	case "exec":
		return NewExecRecognizer(cfg)
	default:
		return nil, fmt.Errorf("unsupported stt mode %q", cfg.Mode)
	}
}
