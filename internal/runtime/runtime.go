package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-voiceclone/internal/bus"
	"github.com/loqalabs/loqa-voiceclone/internal/config"
	"github.com/loqalabs/loqa-voiceclone/internal/emotion"
	"github.com/loqalabs/loqa-voiceclone/internal/history"
	"github.com/loqalabs/loqa-voiceclone/internal/natsserver"
	"github.com/loqalabs/loqa-voiceclone/internal/recorder"
	"github.com/loqalabs/loqa-voiceclone/internal/session"
	"github.com/loqalabs/loqa-voiceclone/internal/stt"
	"github.com/loqalabs/loqa-voiceclone/internal/tts"
	"github.com/loqalabs/loqa-voiceclone/internal/workspace"
)

type Runtime struct {
	cfg         config.Config
	version     string
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	embedded    *natsserver.EmbeddedServer
	bus         *bus.Client
	history     *history.Store
	speak       *session.BusService
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, version string, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:     cfg,
		version: version,
		logger:  logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.version, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry
	defer r.closeAll()

	if err := r.startBus(ctx); err != nil {
		return err
	}

	store, err := history.Open(ctx, r.cfg.History, r.logger.With(slog.String("component", "history")))
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	r.history = store

	var progress session.ProgressFunc
	if r.bus != nil {
		progress = session.ProgressPublisher(r.bus, r.logger.With(slog.String("component", "progress")))
	}
	sess, err := buildSession(r.cfg, r.logger, store, progress)
	if err != nil {
		return err
	}
	runner := session.NewRunner(sess, session.State{})

	if r.bus != nil {
		r.speak = session.NewBusService(ctx, r.bus, runner, 0, r.logger)
		if err := r.speak.Start(); err != nil {
			return fmt.Errorf("failed to start speak service: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricHandler != nil {
		mux.Handle("/metrics", metricHandler)
	}
	newAPI(ctx, runner, store, r.logger).register(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("synthesis", r.cfg.Synthesis.Mode),
		slog.String("recording", r.cfg.Recording.Mode),
		slog.Bool("bus", r.bus != nil))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	return nil
}

func (r *Runtime) startBus(ctx context.Context) error {
	if !r.cfg.Bus.Enabled {
		return nil
	}
	busCfg := r.cfg.Bus
	embedded, err := natsserver.Start(busCfg, r.logger.With(slog.String("component", "nats-server")))
	if err != nil {
		return err
	}
	r.embedded = embedded
	if embedded != nil {
		busCfg.Servers = []string{embedded.ClientURL()}
	}
	client, err := bus.Connect(ctx, busCfg, r.cfg.RuntimeName, r.logger.With(slog.String("component", "bus")))
	if err != nil {
		return fmt.Errorf("failed to connect bus: %w", err)
	}
	r.bus = client
	return nil
}

func (r *Runtime) closeAll() {
	if r.speak != nil {
		r.speak.Close()
	}
	if r.bus != nil {
		r.bus.Close()
	}
	r.embedded.Shutdown()
	if r.history != nil {
		if err := r.history.Close(); err != nil {
			r.logger.Error("history close error", slog.String("error", err.Error()))
		}
	}
	if r.tracerClose != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.tracerClose(ctx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}
}

func buildSession(cfg config.Config, logger *slog.Logger, hist session.HistorySink, progress session.ProgressFunc) (*session.Session, error) {
	layout := workspace.New(cfg.Storage.VoicesDir, cfg.Storage.OutputDir)
	if err := layout.Ensure(); err != nil {
		return nil, err
	}
	synth, err := tts.New(cfg.Synthesis)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	rec, err := recorder.New(cfg.Recording)
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}
	transcriber, err := stt.New(cfg.STT)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}
	return session.New(session.Config{
		Layout:         layout,
		Presets:        emotion.New(cfg.Emotion.Presets, cfg.Emotion.MaxStrength),
		MaxChunkChars:  cfg.Chunker.MaxChars,
		Language:       cfg.Synthesis.Language,
		RecordDuration: time.Duration(cfg.Recording.DurationMS) * time.Millisecond,
	}, session.Deps{
		Synth:       synth,
		Recorder:    rec,
		Transcriber: transcriber,
		History:     hist,
		Progress:    progress,
		Logger:      logger,
	})
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && (r.bus == nil || r.bus.Healthy()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
