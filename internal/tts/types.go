package tts

import (
	"context"
	"fmt"
)

// Request asks a backend to speak Text in the voice of ReferencePath and
// write the result as a WAV file at OutputPath.
type Request struct {
	Text          string
	ReferencePath string
	Language      string
	Speed         float64
	OutputPath    string
}

// Synthesizer is the contract for producing one audio file per call.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) error
}

// SynthesisError reports a failed model invocation. It is never retried.
type SynthesisError struct {
	Backend string
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed (%s): %v", e.Backend, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func synthErr(backend string, format string, args ...any) error {
	return &SynthesisError{Backend: backend, Err: fmt.Errorf(format, args...)}
}
