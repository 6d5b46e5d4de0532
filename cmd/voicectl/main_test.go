package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-voiceclone/internal/audio"
)

func TestRunChunk(t *testing.T) {
	var out bytes.Buffer
	err := runChunk([]string{"-max", "20"}, strings.NewReader("One two three. Four five six. Seven."), &out)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected several chunks, got %q", out.String())
	}
	for _, l := range lines {
		if !strings.HasSuffix(l, ".") {
			t.Fatalf("chunk %q does not end with a period", l)
		}
	}

	if err := runChunk([]string{"-text", "   "}, strings.NewReader(""), &out); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestRunMergeAndProbe(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	for _, p := range []string{a, b} {
		if err := audio.WritePCM16(p, make([]byte, 3200), 16000, 1); err != nil {
			t.Fatal(err)
		}
	}
	dst := filepath.Join(dir, "merged.wav")

	var out bytes.Buffer
	if err := runMerge([]string{"-o", dst, a, b}, &out); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !strings.Contains(out.String(), "3200 frames") {
		t.Fatalf("unexpected merge output %q", out.String())
	}

	out.Reset()
	if err := runProbe([]string{dst}, &out); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !strings.Contains(out.String(), "0.20s") {
		t.Fatalf("unexpected probe output %q", out.String())
	}
	if err := runProbe([]string{filepath.Join(dir, "missing.wav")}, &out); err == nil {
		t.Fatal("expected probe error for missing file")
	}
}

func TestRunSpeakMock(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.wav")
	if err := audio.WritePCM16(ref, make([]byte, 3200), 16000, 1); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOICECLONE_STORAGE_VOICES_DIR", filepath.Join(dir, "voices"))
	t.Setenv("VOICECLONE_STORAGE_OUTPUT_DIR", filepath.Join(dir, "output"))

	var out bytes.Buffer
	if err := runSpeak([]string{"-ref", ref, "-text", "Hello there. How are you today?", "-emotion", "calm"}, &out); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if !strings.Contains(out.String(), "final_cloned_voice.wav") || !strings.Contains(out.String(), "speed 0.75") {
		t.Fatalf("unexpected speak output %q", out.String())
	}
}
