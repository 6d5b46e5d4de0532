package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-voiceclone/internal/bus"
	"github.com/loqalabs/loqa-voiceclone/internal/config"
	"github.com/loqalabs/loqa-voiceclone/internal/natsserver"
	"github.com/loqalabs/loqa-voiceclone/internal/protocol"
	"github.com/nats-io/nats.go"
)

func startBus(t *testing.T) *bus.Client {
	t.Helper()
	cfg := config.Default().Bus
	cfg.Embedded = true
	cfg.Port = -1
	cfg.StoreDir = ""
	srv, err := natsserver.Start(cfg, newLogger())
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	cfg.Servers = []string{srv.ClientURL()}
	client, err := bus.Connect(context.Background(), cfg, "session-test", newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestBusServiceSpeak(t *testing.T) {
	client := startBus(t)
	f := newFixture(t, 0, nil)
	runner := NewRunner(f.session, State{})

	svc := NewBusService(context.Background(), client, runner, 5*time.Second, newLogger())
	if err := svc.Start(); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Close)
	if !svc.Healthy() {
		t.Fatal("expected healthy service")
	}

	request := func(req protocol.SpeakRequest) protocol.SpeakReply {
		t.Helper()
		data, _ := json.Marshal(req)
		msg, err := client.Conn().Request(protocol.SubjectSpeakRequest, data, 5*time.Second)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		var reply protocol.SpeakReply
		if err := json.Unmarshal(msg.Data, &reply); err != nil {
			t.Fatalf("decode reply: %v", err)
		}
		return reply
	}

	reply := request(protocol.SpeakRequest{Text: "Hello over the bus."})
	if !strings.Contains(reply.Error, ErrNoReferenceVoice.Error()) {
		t.Fatalf("expected reference voice error, got %+v", reply)
	}

	if _, err := runner.Do(context.Background(), UploadVoiceRequest{Audio: strings.NewReader("voice")}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	reply = request(protocol.SpeakRequest{Text: "Hello over the bus.", Emotion: "robot"})
	if reply.Error != "" {
		t.Fatalf("unexpected error %q", reply.Error)
	}
	if reply.Output != f.layout.FinalOutput() || reply.Chunks != 1 || reply.RequestID == "" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestProgressPublisher(t *testing.T) {
	client := startBus(t)
	got := make(chan protocol.Progress, 1)
	sub, err := client.Conn().Subscribe(protocol.SubjectProgress, func(msg *nats.Msg) {
		var p protocol.Progress
		if err := json.Unmarshal(msg.Data, &p); err == nil {
			got <- p
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	if err := client.Conn().Flush(); err != nil {
		t.Fatal(err)
	}

	ProgressPublisher(client, newLogger())(Progress{RequestID: "r1", Kind: KindTextToVoice, Done: 2, Total: 3})
	select {
	case p := <-got:
		if p.RequestID != "r1" || p.Done != 2 || p.Total != 3 || p.Kind != string(KindTextToVoice) {
			t.Fatalf("unexpected progress %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for progress")
	}
}
