package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd []string
	mu  sync.Mutex
}

type execRequest struct {
	Text       string  `json:"text"`
	SpeakerWAV string  `json:"speaker_wav"`
	Language   string  `json:"language"`
	Speed      float64 `json:"speed"`
	FilePath   string  `json:"file_path"`
}

// NewExecSynth runs command once per request. The command receives an
// execRequest as JSON on stdin and must write file_path before exiting 0.
func NewExecSynth(command string) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execSynth{cmd: args}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(execRequest{
		Text:       req.Text,
		SpeakerWAV: req.ReferencePath,
		Language:   req.Language,
		Speed:      req.Speed,
		FilePath:   req.OutputPath,
	})
	if err != nil {
		return &SynthesisError{Backend: "exec", Err: err}
	}

	if err := os.Remove(req.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return synthErr("exec", "remove stale output: %w", err)
	}

	command := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	command.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return synthErr("exec", "tts command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return synthErr("exec", "tts command produced no output: %w", err)
	}
	if info.Size() == 0 {
		return synthErr("exec", "tts command wrote an empty file %s", req.OutputPath)
	}
	return nil
}
