// Package session turns user actions into voice cloning work.
//
// A Session holds everything a request needs: the synthesis backend, the
// recorder, the workspace layout and the emotion presets. It keeps no request
// state of its own. Handle maps (state, request) to (state, result) and the
// Runner serializes calls so one action runs at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-voiceclone/internal/audio"
	"github.com/loqalabs/loqa-voiceclone/internal/emotion"
	"github.com/loqalabs/loqa-voiceclone/internal/history"
	"github.com/loqalabs/loqa-voiceclone/internal/recorder"
	"github.com/loqalabs/loqa-voiceclone/internal/stt"
	"github.com/loqalabs/loqa-voiceclone/internal/textchunk"
	"github.com/loqalabs/loqa-voiceclone/internal/tts"
	"github.com/loqalabs/loqa-voiceclone/internal/workspace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRecordDuration is how long a speech sample lasts.
const DefaultRecordDuration = 5 * time.Second

type Config struct {
	Layout         workspace.Layout
	Presets        emotion.Presets
	MaxChunkChars  int
	Language       string
	RecordDuration time.Duration
}

// HistorySink receives completed generations.
type HistorySink interface {
	Record(ctx context.Context, e history.Entry) error
}

type Deps struct {
	Synth       tts.Synthesizer
	Recorder    recorder.Recorder
	Transcriber stt.Recognizer
	History     HistorySink
	Progress    ProgressFunc
	Logger      *slog.Logger
}

type Session struct {
	cfg         Config
	synth       tts.Synthesizer
	recorder    recorder.Recorder
	transcriber stt.Recognizer
	history     HistorySink
	progress    ProgressFunc
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *metrics
	newID       func() string
}

func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Synth == nil {
		return nil, errors.New("session requires a synthesizer")
	}
	if deps.Recorder == nil {
		return nil, errors.New("session requires a recorder")
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = textchunk.DefaultMaxChars
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.RecordDuration <= 0 {
		cfg.RecordDuration = DefaultRecordDuration
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("create session metrics: %w", err)
	}
	return &Session{
		cfg:         cfg,
		synth:       deps.Synth,
		recorder:    deps.Recorder,
		transcriber: deps.Transcriber,
		history:     deps.History,
		progress:    deps.Progress,
		logger:      logger.With(slog.String("component", "session")),
		tracer:      otel.Tracer(instrumentationName),
		metrics:     m,
		newID:       uuid.NewString,
	}, nil
}

func (s *Session) Layout() workspace.Layout { return s.cfg.Layout }

func (s *Session) Presets() emotion.Presets { return s.cfg.Presets }

// Handle runs req against state. On error the returned state equals the
// input state and no artifact is presented.
func (s *Session) Handle(ctx context.Context, state State, req Request) (State, Result, error) {
	if req == nil {
		return state, Result{}, invalid(ErrUnknownRequest)
	}
	id := s.newID()
	kind := req.Kind()
	ctx, span := s.tracer.Start(ctx, "session."+string(kind), trace.WithAttributes(
		attribute.String("request_id", id),
	))
	defer span.End()

	logger := s.logger.With(slog.String("request_id", id), slog.String("kind", string(kind)))
	started := time.Now()

	next := state
	var (
		res Result
		err error
	)
	switch r := req.(type) {
	case UploadVoiceRequest:
		next, res, err = s.uploadVoice(state, r)
	case *UploadVoiceRequest:
		next, res, err = s.uploadVoice(state, *r)
	case TextToVoiceRequest:
		res, err = s.textToVoice(ctx, id, state, r)
	case *TextToVoiceRequest:
		res, err = s.textToVoice(ctx, id, state, *r)
	case RecordRequest, *RecordRequest:
		next, res, err = s.record(ctx, state)
	case ConvertRecordingRequest:
		res, err = s.convert(ctx, id, state, r)
	case *ConvertRecordingRequest:
		res, err = s.convert(ctx, id, state, *r)
	default:
		err = invalid(fmt.Errorf("%w: %T", ErrUnknownRequest, req))
	}

	s.metrics.request(ctx, kind, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if IsValidation(err) {
			logger.Info("request rejected", slog.String("error", err.Error()))
		} else {
			logger.Warn("request failed", slog.String("error", err.Error()), slog.Duration("elapsed", time.Since(started)))
		}
		return state, Result{}, err
	}

	res.RequestID = id
	res.Kind = kind
	logger.Info("request completed",
		slog.String("output", res.Output),
		slog.Int("chunks", res.Chunks),
		slog.Duration("elapsed", time.Since(started)))
	return next, res, nil
}

func (s *Session) uploadVoice(state State, r UploadVoiceRequest) (State, Result, error) {
	if r.Audio == nil {
		return state, Result{}, invalid(ErrNoAudio)
	}
	path, err := s.cfg.Layout.SaveReference(r.Audio)
	if err != nil {
		if errors.Is(err, workspace.ErrEmptyUpload) {
			return state, Result{}, invalid(ErrNoAudio)
		}
		return state, Result{}, err
	}
	state.ReferenceVoice = path
	return state, Result{Output: path}, nil
}

func (s *Session) textToVoice(ctx context.Context, id string, state State, r TextToVoiceRequest) (Result, error) {
	if err := requireFile(state.ReferenceVoice, ErrNoReferenceVoice); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(r.Text) == "" {
		return Result{}, invalid(ErrBlankText)
	}
	speed, err := s.cfg.Presets.Resolve(r.Voice)
	if err != nil {
		return Result{}, invalidSettings(err)
	}

	chunks := textchunk.Split(r.Text, s.cfg.MaxChunkChars)
	if len(chunks) == 0 {
		return Result{}, invalid(ErrBlankText)
	}

	layout := s.cfg.Layout
	final := layout.FinalOutput()
	if err := layout.Ensure(); err != nil {
		return Result{}, err
	}
	if err := layout.Remove(final); err != nil {
		return Result{}, fmt.Errorf("remove previous output: %w", err)
	}
	parts := make([]string, 0, len(chunks))
	defer func() {
		if rmErr := layout.RemoveParts(parts); rmErr != nil {
			s.logger.Warn("failed to remove chunk files", slog.String("request_id", id), slog.String("error", rmErr.Error()))
		}
	}()

	for i, chunk := range chunks {
		part := layout.Part(i)
		parts = append(parts, part)
		if err := s.synthesize(ctx, KindTextToVoice, chunk, state.ReferenceVoice, speed, part); err != nil {
			return Result{}, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}
		s.report(Progress{RequestID: id, Kind: KindTextToVoice, Done: i + 1, Total: len(chunks)})
	}

	info, err := audio.Concatenate(parts, final)
	if err != nil {
		return Result{}, fmt.Errorf("merge chunks: %w", err)
	}

	res := Result{
		Output:   final,
		Artifact: workspace.ArtifactClonedVoice,
		Text:     r.Text,
		Emotion:  emotionName(r.Voice),
		Speed:    speed,
		Chunks:   len(chunks),
		Frames:   info.Frames,
		Seconds:  info.Seconds(),
	}
	s.remember(ctx, id, KindTextToVoice, res)
	return res, nil
}

func (s *Session) record(ctx context.Context, state State) (State, Result, error) {
	d := s.cfg.RecordDuration
	pcm, err := s.recorder.Record(ctx, d)
	if err != nil {
		return state, Result{}, fmt.Errorf("record speech: %w", err)
	}
	layout := s.cfg.Layout
	if err := layout.Ensure(); err != nil {
		return state, Result{}, err
	}
	rc := s.recorder.Config()
	path := layout.Recording()
	if err := audio.WritePCM16(path, pcm, int(rc.SampleRate), int(rc.Channels)); err != nil {
		return state, Result{}, fmt.Errorf("save recording: %w", err)
	}
	state.Recording = path

	frames := 0
	if rc.Channels > 0 {
		frames = len(pcm) / (2 * int(rc.Channels))
	}
	res := Result{Output: path, Frames: frames}
	if rc.SampleRate > 0 {
		res.Seconds = float64(frames) / float64(rc.SampleRate)
	}
	return state, res, nil
}

func (s *Session) convert(ctx context.Context, id string, state State, r ConvertRecordingRequest) (Result, error) {
	if err := requireFile(state.Recording, ErrNoRecording); err != nil {
		return Result{}, err
	}
	if err := requireFile(state.ReferenceVoice, ErrNoReferenceVoice); err != nil {
		return Result{}, err
	}
	speed, err := s.cfg.Presets.Resolve(r.Voice)
	if err != nil {
		return Result{}, invalidSettings(err)
	}

	text := strings.TrimSpace(r.Text)
	if text == "" {
		if s.transcriber == nil {
			return Result{}, invalid(ErrBlankText)
		}
		transcript, err := s.transcriber.Transcribe(ctx, state.Recording)
		if err != nil {
			return Result{}, fmt.Errorf("transcribe recording: %w", err)
		}
		text = strings.TrimSpace(transcript.Text)
		if text == "" {
			return Result{}, errors.New("transcribe recording: no speech recognized")
		}
	}

	layout := s.cfg.Layout
	out := layout.SpeechClone()
	if err := layout.Remove(out); err != nil {
		return Result{}, fmt.Errorf("remove previous output: %w", err)
	}
	if err := s.synthesize(ctx, KindSpeechToVoice, text, state.ReferenceVoice, speed, out); err != nil {
		_ = layout.Remove(out)
		return Result{}, err
	}
	s.report(Progress{RequestID: id, Kind: KindSpeechToVoice, Done: 1, Total: 1})

	res := Result{
		Output:   out,
		Artifact: workspace.ArtifactSpeechClone,
		Text:     text,
		Emotion:  emotionName(r.Voice),
		Speed:    speed,
		Chunks:   1,
	}
	if info, err := audio.Probe(out); err == nil {
		res.Frames = info.Frames
		res.Seconds = info.Seconds()
	} else {
		s.logger.Debug("speech clone output not probed", slog.String("error", err.Error()))
	}
	s.remember(ctx, id, KindSpeechToVoice, res)
	return res, nil
}

func (s *Session) synthesize(ctx context.Context, kind Kind, text, reference string, speed float64, out string) error {
	ctx, span := s.tracer.Start(ctx, "tts.synthesize", trace.WithAttributes(
		attribute.Int("text.length", len(text)),
		attribute.Float64("speed", speed),
	))
	defer span.End()

	started := time.Now()
	err := s.synth.Synthesize(ctx, tts.Request{
		Text:          text,
		ReferencePath: reference,
		Language:      s.cfg.Language,
		Speed:         speed,
		OutputPath:    out,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.metrics.synthesis(ctx, kind, time.Since(started))
	return nil
}

func (s *Session) report(p Progress) {
	s.logger.Debug("synthesis progress",
		slog.String("request_id", p.RequestID),
		slog.Int("done", p.Done),
		slog.Int("total", p.Total))
	if s.progress != nil {
		s.progress(p)
	}
}

func (s *Session) remember(ctx context.Context, id string, kind Kind, res Result) {
	if s.history == nil {
		return
	}
	err := s.history.Record(ctx, history.Entry{
		RequestID: id,
		Kind:      string(kind),
		Text:      res.Text,
		Emotion:   res.Emotion,
		Speed:     res.Speed,
		Chunks:    res.Chunks,
		Seconds:   res.Seconds,
		Output:    res.Output,
	})
	if err != nil {
		s.logger.Warn("failed to record history", slog.String("request_id", id), slog.String("error", err.Error()))
	}
}

func requireFile(path string, missing error) error {
	if path == "" {
		return invalid(missing)
	}
	if _, err := os.Stat(path); err != nil {
		return invalid(missing)
	}
	return nil
}

func emotionName(v emotion.Settings) string {
	if v.Emotion == "" {
		return emotion.DefaultEmotion
	}
	return v.Emotion
}
