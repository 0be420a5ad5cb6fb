package push

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 40, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestNormalizePushURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:7488/push":      "ws://127.0.0.1:7488/push",
		"http://host:1/push":       "ws://host:1/push",
		"https://host/push":        "wss://host/push",
		" wss://secure.example/x ": "wss://secure.example/x",
	}
	for in, want := range cases {
		got, err := normalizePushURL(in)
		if err != nil {
			t.Fatalf("normalizePushURL(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("normalizePushURL(%q) = %q, want %q", in, got, want)
		}
	}
	for _, in := range []string{"", "ftp://host/x", "ws://"} {
		if _, err := normalizePushURL(in); err == nil {
			t.Fatalf("normalizePushURL(%q) returned nil error", in)
		}
	}
}

type recordingHealth struct {
	mu    sync.Mutex
	ups   []string
	downs []error
}

func (r *recordingHealth) LinkUp(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ups = append(r.ups, endpoint)
}

func (r *recordingHealth) LinkDown(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downs = append(r.downs, err)
}

func (r *recordingHealth) upCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ups)
}

func TestStream_DeliversDecodedMessagesAndSkipsMalformed(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, frame := range []string{
			`{"type":"ui","display":true}`,
			`{broken`,
			`{"type":"mystery"}`,
			`{"type":"updateState","state":{"playing":true,"url":"http://s","volume":0.3}}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	health := &recordingHealth{}
	stream, err := NewStream(strings.Replace(server.URL, "http://", "ws://", 1), health)
	if err != nil {
		t.Fatalf("NewStream returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	received := make(chan Message, 8)
	errCh := make(chan error, 1)
	go func() {
		errCh <- stream.Run(ctx, func(m Message) { received <- m })
	}()

	var types []string
	timeout := time.After(3 * time.Second)
	for len(types) < 3 {
		select {
		case m := <-received:
			types = append(types, m.Type)
		case <-timeout:
			t.Fatalf("timed out waiting for messages, got %v", types)
		}
	}
	want := []string{TypeUI, "mystery", TypeUpdateState}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("delivered types = %v, want %v", types, want)
		}
	}
	if health.upCount() != 1 {
		t.Fatalf("LinkUp calls = %d, want 1", health.upCount())
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestStream_RecordsLinkDownWhenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := strings.Replace(server.URL, "http://", "ws://", 1)
	server.Close()

	health := &recordingHealth{}
	stream, err := NewStream(addr, health)
	if err != nil {
		t.Fatalf("NewStream returned error: %v", err)
	}
	stream.retry = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	t.Cleanup(cancel)

	if err := stream.Run(ctx, func(Message) {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v, want deadline exceeded", err)
	}
	health.mu.Lock()
	defer health.mu.Unlock()
	if len(health.downs) == 0 {
		t.Fatalf("LinkDown was never recorded")
	}
	if len(health.ups) != 0 {
		t.Fatalf("LinkUp recorded %d times for unreachable backend", len(health.ups))
	}
}
