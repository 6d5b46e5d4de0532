// Package workspace names every file the application reads or writes.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

const (
	referenceName   = "reference.wav"
	finalName       = "final_cloned_voice.wav"
	recordingName   = "input_speech.wav"
	speechCloneName = "speech_clone.wav"

	ArtifactClonedVoice = "cloned_voice"
	ArtifactSpeechClone = "speech_clone"
)

// ErrEmptyUpload is returned when an uploaded voice has no bytes.
var ErrEmptyUpload = errors.New("empty upload")

// Layout is the voices directory plus the output directory.
type Layout struct {
	VoicesDir string
	OutputDir string
}

func New(voicesDir, outputDir string) Layout {
	return Layout{VoicesDir: voicesDir, OutputDir: outputDir}
}

// Ensure creates both directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.VoicesDir, l.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (l Layout) ReferenceVoice() string { return filepath.Join(l.VoicesDir, referenceName) }

func (l Layout) Part(i int) string {
	return filepath.Join(l.OutputDir, "part_"+strconv.Itoa(i)+".wav")
}

func (l Layout) FinalOutput() string { return filepath.Join(l.OutputDir, finalName) }

func (l Layout) Recording() string { return filepath.Join(l.OutputDir, recordingName) }

func (l Layout) SpeechClone() string { return filepath.Join(l.OutputDir, speechCloneName) }

// SaveReference copies r to the reference voice path, replacing any previous
// upload only once the copy is complete.
func (l Layout) SaveReference(r io.Reader) (string, error) {
	if err := l.Ensure(); err != nil {
		return "", err
	}
	dst := l.ReferenceVoice()
	tmp, err := os.CreateTemp(l.VoicesDir, ".reference.*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp reference: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = ErrEmptyUpload
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save reference voice: %w", err)
	}
	return dst, nil
}

// RemoveParts deletes per-chunk files, ignoring ones already gone.
func (l Layout) RemoveParts(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Remove deletes path if present.
func (l Layout) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Artifact resolves a downloadable artifact to its path and download name.
func (l Layout) Artifact(name string) (path, download string, ok bool) {
	switch name {
	case ArtifactClonedVoice:
		return l.FinalOutput(), "cloned_voice.wav", true
	case ArtifactSpeechClone:
		return l.SpeechClone(), "speech_clone.wav", true
	default:
		return "", "", false
	}
}
