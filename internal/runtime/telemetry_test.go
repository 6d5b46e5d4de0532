package runtime

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-voiceclone/internal/config"
	"go.opentelemetry.io/otel"
)

func TestTelemetryExportsServiceVersion(t *testing.T) {
	cfg := config.Default()
	shutdown, handler, err := setupTelemetry(cfg, "1.2.3", newLogger())
	if err != nil {
		t.Fatalf("setup telemetry: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	counter, err := otel.Meter("voiceclone-test").Int64Counter("voiceclone.requests")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(context.Background(), 1)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "voiceclone_requests") {
		t.Fatalf("counter missing from metrics:\n%s", body)
	}
	if !strings.Contains(string(body), `service_version="1.2.3"`) {
		t.Fatalf("service version missing from metrics:\n%s", body)
	}
}

func TestTelemetryStdoutTraces(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Traces = "stdout"
	shutdown, _, err := setupTelemetry(cfg, "dev", newLogger())
	if err != nil {
		t.Fatalf("stdout traces: %v", err)
	}
	_ = shutdown(context.Background())
}
