package recorder

import (
	"context"
	"time"
)

// MockRecorder returns silence without touching any device. It does not sleep
// for the duration.
type MockRecorder struct {
	config Config
	calls  int
}

func NewMockRecorder(config Config) *MockRecorder {
	return &MockRecorder{config: config}
}

func (m *MockRecorder) Config() Config { return m.config }

func (m *MockRecorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.calls++
	return make([]byte, m.config.BytesFor(d)), nil
}

// Calls reports how many recordings were taken.
func (m *MockRecorder) Calls() int { return m.calls }
