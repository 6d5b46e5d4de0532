package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/loqalabs/loqa-voiceclone/internal/bus"
	"github.com/loqalabs/loqa-voiceclone/internal/emotion"
	"github.com/loqalabs/loqa-voiceclone/internal/protocol"
	"github.com/nats-io/nats.go"
)

// BusService answers speak requests arriving over NATS through the same
// Runner as the HTTP surface.
type BusService struct {
	bus     *bus.Client
	runner  *Runner
	timeout time.Duration
	sub     *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
}

func NewBusService(parent context.Context, busClient *bus.Client, runner *Runner, timeout time.Duration, log *slog.Logger) *BusService {
	ctx, cancel := context.WithCancel(parent)
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &BusService{
		bus:     busClient,
		runner:  runner,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		logger:  log.With(slog.String("component", "speak-service")),
	}
}

func (s *BusService) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectSpeakRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *BusService) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *BusService) Healthy() bool { return s.sub != nil && s.sub.IsValid() }

func (s *BusService) handleRequest(msg *nats.Msg) {
	var req protocol.SpeakRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode speak request", slogError(err))
		s.reply(msg, protocol.SpeakReply{Error: "invalid request: " + err.Error()})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		res, err := s.runner.Do(ctx, TextToVoiceRequest{
			Text:  req.Text,
			Voice: emotion.Settings{Emotion: req.Emotion, Strength: req.Strength, Speed: req.Speed},
		})
		if err != nil {
			s.reply(msg, protocol.SpeakReply{Error: err.Error()})
			return
		}
		s.reply(msg, protocol.SpeakReply{
			RequestID: res.RequestID,
			Output:    res.Output,
			Chunks:    res.Chunks,
			Seconds:   res.Seconds,
		})
	}()
}

func (s *BusService) reply(msg *nats.Msg, reply protocol.SpeakReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Warn("failed to marshal speak reply", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to send speak reply", slogError(err))
	}
}

// ProgressPublisher returns a ProgressFunc that publishes on the bus.
func ProgressPublisher(busClient *bus.Client, log *slog.Logger) ProgressFunc {
	return func(p Progress) {
		err := busClient.PublishJSON(protocol.SubjectProgress, protocol.Progress{
			RequestID: p.RequestID,
			Kind:      string(p.Kind),
			Done:      p.Done,
			Total:     p.Total,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Warn("failed to publish progress", slogError(err))
		}
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
