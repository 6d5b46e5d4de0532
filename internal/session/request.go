package session

import (
	"io"

	"github.com/loqalabs/loqa-voiceclone/internal/emotion"
)

type Kind string

const (
	KindUploadVoice   Kind = "upload_voice"
	KindTextToVoice   Kind = "text_to_voice"
	KindRecord        Kind = "record"
	KindSpeechToVoice Kind = "speech_to_voice"
)

// State is everything that survives between requests.
type State struct {
	ReferenceVoice string `json:"reference_voice,omitempty"`
	Recording      string `json:"recording,omitempty"`
}

// Request is one user action. The set is closed.
type Request interface {
	Kind() Kind
}

// UploadVoiceRequest replaces the reference voice with Audio.
type UploadVoiceRequest struct {
	Audio io.Reader
}

// TextToVoiceRequest speaks Text in the reference voice.
type TextToVoiceRequest struct {
	Text  string
	Voice emotion.Settings
}

// RecordRequest captures a fixed-length speech sample.
type RecordRequest struct{}

// ConvertRecordingRequest re-speaks the recording in the reference voice.
// Blank Text falls back to a transcript of the recording when a transcriber
// is configured.
type ConvertRecordingRequest struct {
	Text  string
	Voice emotion.Settings
}

func (UploadVoiceRequest) Kind() Kind      { return KindUploadVoice }
func (TextToVoiceRequest) Kind() Kind      { return KindTextToVoice }
func (RecordRequest) Kind() Kind           { return KindRecord }
func (ConvertRecordingRequest) Kind() Kind { return KindSpeechToVoice }

// Result describes what a request produced.
type Result struct {
	RequestID string  `json:"request_id"`
	Kind      Kind    `json:"kind"`
	Output    string  `json:"output"`
	Artifact  string  `json:"artifact,omitempty"`
	Text      string  `json:"text,omitempty"`
	Emotion   string  `json:"emotion,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Chunks    int     `json:"chunks,omitempty"`
	Frames    int     `json:"frames,omitempty"`
	Seconds   float64 `json:"seconds,omitempty"`
}

// Progress reports how many chunks of a request are synthesized.
type Progress struct {
	RequestID string
	Kind      Kind
	Done      int
	Total     int
}

type ProgressFunc func(Progress)
