package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/loqalabs/loqa-voiceclone/internal/audio"
	"github.com/loqalabs/loqa-voiceclone/internal/bus"
	"github.com/loqalabs/loqa-voiceclone/internal/config"
	"github.com/loqalabs/loqa-voiceclone/internal/emotion"
	"github.com/loqalabs/loqa-voiceclone/internal/protocol"
	"github.com/loqalabs/loqa-voiceclone/internal/recorder"
	"github.com/loqalabs/loqa-voiceclone/internal/session"
	"github.com/loqalabs/loqa-voiceclone/internal/textchunk"
	"github.com/loqalabs/loqa-voiceclone/internal/tts"
	"github.com/loqalabs/loqa-voiceclone/internal/workspace"
)

var version = "0.1.0-dev"

const usage = "expected 'chunk', 'merge', 'probe', 'speak', 'request' or 'version'"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "chunk":
		err = runChunk(os.Args[2:], os.Stdin, os.Stdout)
	case "merge":
		err = runMerge(os.Args[2:], os.Stdout)
	case "probe":
		err = runProbe(os.Args[2:], os.Stdout)
	case "speak":
		err = runSpeak(os.Args[2:], os.Stdout)
	case "request":
		err = runRequest(os.Args[2:], os.Stdout)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runChunk prints one chunk per line. Text comes from -text or stdin.
func runChunk(args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("chunk", flag.ContinueOnError)
	maxChars := fs.Int("max", textchunk.DefaultMaxChars, "Maximum characters per chunk")
	text := fs.String("text", "", "Text to split (default: read stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	input := *text
	if input == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		input = string(data)
	}
	chunks := textchunk.Split(input, *maxChars)
	if len(chunks) == 0 {
		return errors.New("no text to chunk")
	}
	for _, c := range chunks {
		fmt.Fprintln(out, c)
	}
	return nil
}

func runMerge(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	dst := fs.String("o", "merged.wav", "Output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	info, err := audio.Concatenate(fs.Args(), *dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s, %d frames, %.2fs\n", *dst, info.Params, info.Frames, info.Seconds())
	return nil
}

func runProbe(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("probe needs at least one file")
	}
	var errs []error
	for _, path := range args {
		info, err := audio.Probe(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "%s: %s, %d frames, %.2fs\n", path, info.Params, info.Frames, info.Seconds())
	}
	return errors.Join(errs...)
}

type voiceFlags struct {
	text     string
	emotion  string
	strength float64
	speed    float64
}

func (v *voiceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&v.text, "text", "", "Text to speak")
	fs.StringVar(&v.emotion, "emotion", emotion.DefaultEmotion, "Emotion style preset")
	fs.Float64Var(&v.strength, "strength", 1.0, "Emotion strength (0.5-2.0)")
	fs.Float64Var(&v.speed, "speed", 0, "Speech speed (0.5-1.6, default: preset speed)")
}

// runSpeak runs one text-to-voice request in-process with the configured
// synthesis backend.
func runSpeak(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("speak", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	reference := fs.String("ref", "", "Reference voice wav")
	var voice voiceFlags
	voice.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	synth, err := tts.New(cfg.Synthesis)
	if err != nil {
		return err
	}
	rec, err := recorder.New(cfg.Recording)
	if err != nil {
		return err
	}
	sess, err := session.New(session.Config{
		Layout:        workspace.New(cfg.Storage.VoicesDir, cfg.Storage.OutputDir),
		Presets:       emotion.New(cfg.Emotion.Presets, cfg.Emotion.MaxStrength),
		MaxChunkChars: cfg.Chunker.MaxChars,
		Language:      cfg.Synthesis.Language,
	}, session.Deps{
		Synth:    synth,
		Recorder: rec,
		Logger:   logger,
		Progress: func(p session.Progress) {
			fmt.Fprintf(out, "chunk %d/%d\n", p.Done, p.Total)
		},
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	runner := session.NewRunner(sess, session.State{})
	if *reference != "" {
		f, err := os.Open(*reference)
		if err != nil {
			return fmt.Errorf("open reference voice: %w", err)
		}
		defer f.Close()
		if _, err := runner.Do(ctx, session.UploadVoiceRequest{Audio: f}); err != nil {
			return err
		}
	}

	res, err := runner.Do(ctx, session.TextToVoiceRequest{
		Text:  voice.text,
		Voice: emotion.Settings{Emotion: voice.emotion, Strength: voice.strength, Speed: voice.speed},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d chunks, speed %.2f, %.2fs\n", res.Output, res.Chunks, res.Speed, res.Seconds)
	return nil
}

// runRequest sends a speak request to a running service over the bus.
func runRequest(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	servers := fs.String("servers", "", "Comma separated NATS servers (overrides config)")
	timeout := fs.Duration("timeout", 5*time.Minute, "How long to wait for the reply")
	var voice voiceFlags
	voice.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *servers != "" {
		cfg.Bus.Servers = strings.Split(*servers, ",")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	client, err := bus.Connect(ctx, cfg.Bus, "voicectl", logger)
	if err != nil {
		return err
	}
	defer client.Close()

	data, err := json.Marshal(protocol.SpeakRequest{
		Text:     voice.text,
		Emotion:  voice.emotion,
		Strength: voice.strength,
		Speed:    voice.speed,
	})
	if err != nil {
		return err
	}
	msg, err := client.Conn().RequestWithContext(ctx, protocol.SubjectSpeakRequest, data)
	if err != nil {
		return fmt.Errorf("speak request: %w", err)
	}
	var reply protocol.SpeakReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if reply.Error != "" {
		return errors.New(reply.Error)
	}
	fmt.Fprintf(out, "%s: %d chunks, %.2fs (request %s)\n", reply.Output, reply.Chunks, reply.Seconds, reply.RequestID)
	return nil
}
