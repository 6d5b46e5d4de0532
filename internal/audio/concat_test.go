package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, path string, p Params, frames int, seed int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	limit := 1 << (p.BitDepth - 1)
	data := make([]int, frames*p.Channels)
	for i := range data {
		data[i] = (i*37+seed*101)%(limit) - limit/2
	}
	enc := wav.NewEncoder(f, p.SampleRate, p.BitDepth, p.Channels, p.AudioFormat)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: p.Channels, SampleRate: p.SampleRate},
		SourceBitDepth: p.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
}

func readSamples(t *testing.T, path string) []int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return buf.Data
}

var mono16k = Params{SampleRate: 16000, Channels: 1, BitDepth: 16, AudioFormat: FormatPCM}

func TestConcatenateSingleFileIsFrameEquivalent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "part_0.wav")
	dst := filepath.Join(dir, "final.wav")
	writeTestWAV(t, src, mono16k, 1600, 1)

	info, err := Concatenate([]string{src}, dst)
	if err != nil {
		t.Fatalf("concatenate: %v", err)
	}
	if info.Params != mono16k || info.Frames != 1600 {
		t.Fatalf("unexpected info %+v", info)
	}

	probed, err := Probe(dst)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if probed != info {
		t.Fatalf("probe %+v does not match concat info %+v", probed, info)
	}

	want, got := readSamples(t, src), readSamples(t, dst)
	if len(want) != len(got) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("sample %d differs: %d != %d", i, want[i], got[i])
		}
	}
}

func TestConcatenateSumsFramesInOrder(t *testing.T) {
	cases := []struct {
		name   string
		params Params
		frames []int
	}{
		{"mono 16 bit", mono16k, []int{800, 1200, 10}},
		{"stereo 16 bit", Params{SampleRate: 44100, Channels: 2, BitDepth: 16, AudioFormat: FormatPCM}, []int{441, 882}},
		{"mono 24 bit", Params{SampleRate: 24000, Channels: 1, BitDepth: 24, AudioFormat: FormatPCM}, []int{240, 240, 240, 240}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			var paths []string
			var want []int
			total := 0
			for i, n := range tc.frames {
				p := filepath.Join(dir, "part_"+string(rune('a'+i))+".wav")
				writeTestWAV(t, p, tc.params, n, i)
				paths = append(paths, p)
				want = append(want, readSamples(t, p)...)
				total += n
			}
			dst := filepath.Join(dir, "final.wav")

			info, err := Concatenate(paths, dst)
			if err != nil {
				t.Fatalf("concatenate: %v", err)
			}
			if info.Frames != total {
				t.Fatalf("expected %d frames, got %d", total, info.Frames)
			}
			if info.Params != tc.params {
				t.Fatalf("expected params %v, got %v", tc.params, info.Params)
			}
			got := readSamples(t, dst)
			if len(got) != len(want) {
				t.Fatalf("expected %d samples, got %d", len(want), len(got))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("sample %d out of order: %d != %d", i, got[i], want[i])
				}
			}
		})
	}
}

func TestConcatenateFormatMismatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	writeTestWAV(t, a, mono16k, 160, 0)
	writeTestWAV(t, b, Params{SampleRate: 44100, Channels: 1, BitDepth: 16, AudioFormat: FormatPCM}, 441, 1)
	dst := filepath.Join(dir, "final.wav")

	_, err := Concatenate([]string{a, b}, dst)
	if !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
	assertNoOutput(t, dir, dst)
}

func TestConcatenateMissingFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	writeTestWAV(t, a, mono16k, 160, 0)
	dst := filepath.Join(dir, "final.wav")

	_, err := Concatenate([]string{a, filepath.Join(dir, "missing.wav")}, dst)
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
	assertNoOutput(t, dir, dst)
}

func TestConcatenateInvalidFile(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.wav")
	if err := os.WriteFile(bogus, []byte("definitely not riff data, just text"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "final.wav")

	_, err := Concatenate([]string{bogus}, dst)
	if !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("expected ErrInvalidFile, got %v", err)
	}
	assertNoOutput(t, dir, dst)
}

func TestConcatenateNoInput(t *testing.T) {
	if _, err := Concatenate(nil, filepath.Join(t.TempDir(), "final.wav")); !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestWritePCM16RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "input_speech.wav")
	pcm := make([]byte, 16000*2)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = byte(i)
		pcm[i+1] = byte(i >> 8)
	}
	if err := WritePCM16(path, pcm, 16000, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := Probe(path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.Params != mono16k || info.Frames != 16000 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Seconds() != 1 {
		t.Fatalf("expected 1 second, got %v", info.Seconds())
	}
}

func TestWritePCM16RejectsOddPayload(t *testing.T) {
	if err := WritePCM16(filepath.Join(t.TempDir(), "x.wav"), []byte{1, 2, 3}, 16000, 1); err == nil {
		t.Fatal("expected error for misaligned pcm")
	}
}

func assertNoOutput(t *testing.T, dir, dst string) {
	t.Helper()
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no output at %s, stat err=%v", dst, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}
