package stt

import (
	"context"
	"fmt"
	"os"
)

type mockRecognizer struct {
	text string
}

// NewMockRecognizer returns text for every file, or a size description when
// text is empty.
func NewMockRecognizer(text string) Recognizer {
	return &mockRecognizer{text: text}
}

func (m *mockRecognizer) Transcribe(_ context.Context, wavPath string) (TranscriptResult, error) {
	info, err := os.Stat(wavPath)
	if err != nil {
		return TranscriptResult{}, fmt.Errorf("stat recording: %w", err)
	}
	if m.text != "" {
		return TranscriptResult{Text: m.text, Confidence: 1}, nil
	}
	return TranscriptResult{
		Text:       fmt.Sprintf("Recorded sample of %d bytes.", info.Size()),
		Confidence: 0,
	}, nil
}
