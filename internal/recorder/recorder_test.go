package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/loqalabs/loqa-voiceclone/internal/config"
)

func TestBytesFor(t *testing.T) {
	cases := []struct {
		cfg  Config
		d    time.Duration
		want int
	}{
		{DefaultConfig(), 5 * time.Second, 160000},
		{Config{SampleRate: 44100, Channels: 2}, time.Second, 176400},
		{DefaultConfig(), 0, 0},
	}
	for _, tc := range cases {
		if got := tc.cfg.BytesFor(tc.d); got != tc.want {
			t.Fatalf("BytesFor(%v) with %+v: expected %d, got %d", tc.d, tc.cfg, tc.want, got)
		}
	}
}

func TestMockRecorder(t *testing.T) {
	rec := NewMockRecorder(DefaultConfig())
	pcm, err := rec.Record(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(pcm) != 160000 {
		t.Fatalf("expected 5s of 16 kHz mono pcm, got %d bytes", len(pcm))
	}
	if rec.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", rec.Calls())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rec.Record(ctx, time.Second); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewModes(t *testing.T) {
	cfg := config.Default().Recording
	rec, err := New(cfg)
	if err != nil {
		t.Fatalf("mock recorder: %v", err)
	}
	if rec.Config().SampleRate != 16000 || rec.Config().Channels != 1 {
		t.Fatalf("unexpected config %+v", rec.Config())
	}
	cfg.Mode = "tape"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
