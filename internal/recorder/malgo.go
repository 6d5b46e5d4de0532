package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoRecorder captures from the default input device.
type MalgoRecorder struct {
	config Config
	mu     sync.Mutex
}

func NewMalgoRecorder(config Config) *MalgoRecorder {
	return &MalgoRecorder{config: config}
}

func (m *MalgoRecorder) Config() Config { return m.config }

// Record opens the device, captures exactly d worth of frames and closes it.
func (m *MalgoRecorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := m.config.BytesFor(d)
	if want <= 0 {
		return nil, fmt.Errorf("recording duration too short: %s", d)
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.BufferFrames

	var (
		bufMu sync.Mutex
		pcm   = make([]byte, 0, want)
		done  = make(chan struct{})
		once  sync.Once
	)

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(_, pInputSamples []byte, _ uint32) {
		bufMu.Lock()
		defer bufMu.Unlock()
		if len(pcm) >= want {
			return
		}
		n := want - len(pcm)
		if n > len(pInputSamples) {
			n = len(pInputSamples)
		}
		pcm = append(pcm, pInputSamples[:n]...)
		if len(pcm) >= want {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	// Devices may deliver late; allow a grace period beyond the nominal length.
	timer := time.NewTimer(d + 2*time.Second)
	defer timer.Stop()

	select {
	case <-done:
	case <-ctx.Done():
		_ = device.Stop()
		return nil, ctx.Err()
	case <-timer.C:
		_ = device.Stop()
		return nil, fmt.Errorf("capture device delivered too little audio within %s", d)
	}

	if err := device.Stop(); err != nil {
		return nil, fmt.Errorf("failed to stop device: %w", err)
	}

	bufMu.Lock()
	defer bufMu.Unlock()
	return append([]byte(nil), pcm...), nil
}
