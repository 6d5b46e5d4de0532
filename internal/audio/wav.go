// Package audio reads, writes and joins uncompressed WAV files.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FormatPCM is the WAVE format tag for uncompressed integer PCM.
const FormatPCM = 1

var (
	ErrNoInput           = errors.New("no input files")
	ErrMissingFile       = errors.New("audio file missing")
	ErrInvalidFile       = errors.New("not a valid wav file")
	ErrUnsupportedFormat = errors.New("unsupported wav encoding")
	ErrFormatMismatch    = errors.New("audio format mismatch")
)

// Params are the format parameters that must agree across joined files.
type Params struct {
	SampleRate  int `json:"sample_rate"`
	Channels    int `json:"channels"`
	BitDepth    int `json:"bit_depth"`
	AudioFormat int `json:"audio_format"`
}

func (p Params) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit, format %d", p.SampleRate, p.Channels, p.BitDepth, p.AudioFormat)
}

// Info describes a WAV file.
type Info struct {
	Params
	Frames int `json:"frames"`
}

// Seconds returns the playback duration.
func (i Info) Seconds() float64 {
	if i.SampleRate == 0 {
		return 0
	}
	return float64(i.Frames) / float64(i.SampleRate)
}

// Probe reads the header of a WAV file.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrMissingFile, path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Info{}, fmt.Errorf("%w: %s", ErrInvalidFile, path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
	}
	params := paramsOf(dec)
	info := Info{Params: params}
	if frameSize := params.Channels * params.BitDepth / 8; frameSize > 0 {
		info.Frames = int(dec.PCMLen()) / frameSize
	}
	return info, nil
}

// WritePCM16 stores little-endian signed 16-bit PCM as a WAV file.
func WritePCM16(path string, pcm []byte, sampleRate, channels int) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	if channels <= 0 || sampleRate <= 0 {
		return fmt.Errorf("invalid pcm format: %d Hz, %d ch", sampleRate, channels)
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buf := &goaudio.IntBuffer{
		Data:           samples,
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	params := Params{SampleRate: sampleRate, Channels: channels, BitDepth: 16, AudioFormat: FormatPCM}
	return writeAtomic(path, params, func(enc *wav.Encoder) error {
		return enc.Write(buf)
	})
}

func paramsOf(dec *wav.Decoder) Params {
	return Params{
		SampleRate:  int(dec.SampleRate),
		Channels:    int(dec.NumChans),
		BitDepth:    int(dec.BitDepth),
		AudioFormat: int(dec.WavAudioFormat),
	}
}

// writeAtomic encodes into a temporary sibling of path and renames it into
// place only when fill and the encoder both succeed.
func writeAtomic(path string, params Params, fill func(*wav.Encoder) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc := wav.NewEncoder(tmp, params.SampleRate, params.BitDepth, params.Channels, params.AudioFormat)
	if err = fill(enc); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err = enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit output: %w", err)
	}
	return nil
}
