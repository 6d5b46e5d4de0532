package stt

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-voiceclone/internal/config"
)

func TestNewDisabledReturnsNil(t *testing.T) {
	rec, err := New(config.STTConfig{Enabled: false, Mode: "exec"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil recognizer when disabled")
	}
}

func TestMockRecognizer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input_speech.wav")
	if err := os.WriteFile(path, make([]byte, 44), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewMockRecognizer("").Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !strings.Contains(res.Text, "44 bytes") {
		t.Fatalf("unexpected transcript %q", res.Text)
	}

	res, err = NewMockRecognizer("hello world").Transcribe(context.Background(), path)
	if err != nil || res.Text != "hello world" {
		t.Fatalf("expected fixed transcript, got %q, %v", res.Text, err)
	}

	if _, err := NewMockRecognizer("").Transcribe(context.Background(), path+".missing"); err == nil {
		t.Fatal("expected error for missing recording")
	}
}

func TestExecRecognizer(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	// The recognizer appends --audio <path> --language en; "$2" is the audio path.
	rec, err := NewExecRecognizer(config.STTConfig{
		Command:  `sh -c 'printf "{\"text\":\"%s\",\"confidence\":0.9}" "$(basename "$2")"' recognizer`,
		Language: "en",
	})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	res, err := rec.Transcribe(context.Background(), "/tmp/input_speech.wav")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != "input_speech.wav" || res.Confidence != 0.9 {
		t.Fatalf("unexpected result %+v", res)
	}
}
