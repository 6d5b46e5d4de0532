// Package recorder captures fixed-length mono speech samples.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-voiceclone/internal/config"
)

// Config holds configuration for audio capture.
type Config struct {
	// SampleRate is the number of samples per second (Hz).
	SampleRate uint32

	// Channels is the number of audio channels; 1 = mono.
	Channels uint32

	// BufferFrames is the device period in frames.
	// Smaller = lower latency, higher CPU usage
	BufferFrames uint32
}

// DefaultConfig returns 16 kHz mono with 30 ms periods.
func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		Channels:     1,
		BufferFrames: 480,
	}
}

// BytesFor returns the size of d seconds of 16-bit PCM in this format.
func (c Config) BytesFor(d time.Duration) int {
	frames := int(d.Seconds() * float64(c.SampleRate))
	return frames * int(c.Channels) * 2
}

// Recorder blocks for d and returns signed 16-bit little-endian PCM.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) ([]byte, error)
	Config() Config
}

// New builds the recorder selected by cfg.Mode.
func New(cfg config.RecordingConfig) (Recorder, error) {
	c := DefaultConfig()
	c.SampleRate = uint32(cfg.SampleRate)
	c.Channels = uint32(cfg.Channels)
	switch cfg.Mode {
	case "mock", "":
		return NewMockRecorder(c), nil
	case "device":
		return NewMalgoRecorder(c), nil
	default:
		return nil, fmt.Errorf("unsupported recording mode %q", cfg.Mode)
	}
}
