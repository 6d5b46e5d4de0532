package tts

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"time"
	"unicode/utf8"

	"github.com/loqalabs/loqa-voiceclone/internal/audio"
)

// perRune is how long the mock "speaks" one character at speed 1.0.
const perRune = 60 * time.Millisecond

type mockSynth struct {
	sampleRate int
}

// NewMockSynth writes a deterministic mono tone whose length follows the text
// length and the requested speed.
func NewMockSynth(sampleRate int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return &SynthesisError{Backend: "mock", Err: err}
	}
	if _, err := os.Stat(req.ReferencePath); err != nil {
		return synthErr("mock", "reference voice unavailable: %w", err)
	}
	frames := FramesFor(req.Text, req.Speed, m.sampleRate)
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*220*float64(i)/float64(m.sampleRate)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	if err := audio.WritePCM16(req.OutputPath, pcm, m.sampleRate, 1); err != nil {
		return &SynthesisError{Backend: "mock", Err: err}
	}
	return nil
}

// FramesFor reports how many frames the mock produces for text at speed.
func FramesFor(text string, speed float64, sampleRate int) int {
	if speed <= 0 {
		speed = 1
	}
	duration := time.Duration(float64(utf8.RuneCountInString(text)) * float64(perRune) / speed)
	frames := int(duration.Seconds() * float64(sampleRate))
	if frames < 1 {
		frames = 1
	}
	return frames
}
