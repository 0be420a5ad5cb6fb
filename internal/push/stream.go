package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/carradio/internal/logging"
)

const (
	defaultRetryInterval = 2 * time.Second
	maxBackoff           = 30 * time.Second
	handshakeTimeout     = 10 * time.Second
	maxMessageBytes      = 1 << 20

	// Subprotocol is offered during the websocket handshake.
	Subprotocol = "carradio.push.v1"
)

// HealthRecorder receives link state changes. *state.Store implements it.
type HealthRecorder interface {
	LinkUp(endpoint string)
	LinkDown(err error)
}

// Stream receives push messages from the backend over a websocket and keeps
// reconnecting until its context is cancelled.
type Stream struct {
	url    string
	dialer *websocket.Dialer
	health HealthRecorder
	retry  time.Duration
}

// NewStream builds a Stream for pushURL (ws:// or wss://; http schemes are
// rewritten). health may be nil.
func NewStream(pushURL string, health HealthRecorder) (*Stream, error) {
	u, err := normalizePushURL(pushURL)
	if err != nil {
		return nil, err
	}
	return &Stream{
		url: u,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Subprotocols:     []string{Subprotocol},
		},
		health: health,
		retry:  defaultRetryInterval,
	}, nil
}

// URL returns the websocket endpoint.
func (s *Stream) URL() string {
	return s.url
}

// Run dials the backend and delivers every decoded message to deliver, in
// arrival order, from a single goroutine. Malformed messages are logged and
// skipped. Run returns when ctx is cancelled.
func (s *Stream) Run(ctx context.Context, deliver func(Message)) error {
	failures := 0
	for {
		err := s.session(ctx, deliver, func() { failures = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		failures++
		if s.health != nil {
			s.health.LinkDown(err)
		}
		wait := calculateBackoff(failures-1, s.retry)
		logging.Warnf("push link %s down: %v (retrying in %s)", s.url, err, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Stream) session(ctx context.Context, deliver func(Message), connected func()) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial push: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	connected()
	if s.health != nil {
		s.health.LinkUp(s.url)
	}
	logging.Infof("push link connected to %s", s.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read push: %w", err)
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		msg, err := Decode(data)
		if err != nil {
			var bad *MalformedMessageError
			if errors.As(err, &bad) {
				logging.Warnf("skipping push message: %s: %s", bad.Reason, bad.Raw)
				continue
			}
			return err
		}
		deliver(msg)
	}
}

// calculateBackoff returns the wait before the next reconnect attempt:
// base doubled per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	if failures > 16 {
		return maxBackoff
	}
	d := base << failures
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func normalizePushURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("push url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "ws://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse push url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("push url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("push url %q: missing host", raw)
	}
	return u.String(), nil
}
