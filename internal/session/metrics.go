package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/loqalabs/loqa-voiceclone/session"

type metrics struct {
	requests metric.Int64Counter
	chunks   metric.Int64Counter
	synth    metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter(instrumentationName)
	requests, err := meter.Int64Counter("voiceclone.requests", metric.WithDescription("Handled requests by kind and outcome"))
	if err != nil {
		return nil, err
	}
	chunks, err := meter.Int64Counter("voiceclone.chunks", metric.WithDescription("Synthesized text chunks"))
	if err != nil {
		return nil, err
	}
	synth, err := meter.Float64Histogram("voiceclone.synthesis.duration",
		metric.WithDescription("Time spent in one synthesis call"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &metrics{requests: requests, chunks: chunks, synth: synth}, nil
}

func (m *metrics) request(ctx context.Context, kind Kind, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case IsValidation(err):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
}

func (m *metrics) synthesis(ctx context.Context, kind Kind, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("kind", string(kind)))
	m.chunks.Add(ctx, 1, attrs)
	m.synth.Record(ctx, elapsed.Seconds(), attrs)
}
