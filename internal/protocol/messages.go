package protocol

import "time"

// SpeakRequest asks the service to speak Text in the uploaded voice.
type SpeakRequest struct {
	Text     string  `json:"text"`
	Emotion  string  `json:"emotion,omitempty"`
	Strength float64 `json:"strength,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
}

// SpeakReply answers a SpeakRequest. Error is set instead of Output on failure.
type SpeakReply struct {
	RequestID string  `json:"request_id"`
	Output    string  `json:"output,omitempty"`
	Chunks    int     `json:"chunks,omitempty"`
	Seconds   float64 `json:"seconds,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Progress is published after each synthesized chunk.
type Progress struct {
	RequestID string    `json:"request_id"`
	Kind      string    `json:"kind"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectSpeakRequest = "voiceclone.speak.request"
	SubjectProgress     = "voiceclone.progress"
)
