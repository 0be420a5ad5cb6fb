package shell

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/carradio/internal/gateway"
	"github.com/five82/carradio/internal/push"
	"github.com/five82/carradio/internal/state"
)

type fakeInvoker struct {
	mu    sync.Mutex
	calls []gateway.Call
}

func (f *fakeInvoker) Invoke(ctx context.Context, action string, payload any) (gateway.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, gateway.Call{Action: action, Payload: payload})
	return gateway.Result{"ok": true}, nil
}

func (f *fakeInvoker) sent() []gateway.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Call(nil), f.calls...)
}

func newTestShell(t *testing.T) (*Shell, *fakeInvoker, *bytes.Buffer) {
	t.Helper()
	inv := &fakeInvoker{}
	out := &bytes.Buffer{}
	sh := New(Options{Invoker: inv, Store: &state.Store{}, Out: out})
	sh.overlay.ApplyVisibility(true)
	t.Cleanup(sh.stop)
	return sh, inv, out
}

func inject(t *testing.T, sh *Shell, raw string) {
	t.Helper()
	msg, err := push.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%s) returned error: %v", raw, err)
	}
	sh.HandlePush(msg)
}

// awaitOutcome waits for the next dispatched call to finish.
func awaitOutcome(t *testing.T, sh *Shell) gateway.Outcome {
	t.Helper()
	select {
	case out := <-sh.outcomes:
		return out
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a call outcome")
		return gateway.Outcome{}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{`play http://x`, Command{Name: "play", Args: []string{"http://x"}}},
		{`save "Kiss FM" http://kiss`, Command{Name: "save", Args: []string{"Kiss FM", "http://kiss"}}},
		{`RM 2`, Command{Name: "del", Args: []string{"2"}}},
		{`exit`, Command{Name: "quit", Args: []string{}}},
		{`   `, Command{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.line, err)
			}
			if got.Name != tt.want.Name || !reflect.DeepEqual(append([]string{}, got.Args...), append([]string{}, tt.want.Args...)) {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}

	if _, err := Parse("dance"); err == nil {
		t.Fatalf("Parse(dance) returned nil error")
	}
	if _, err := Parse(`save "unterminated`); err == nil {
		t.Fatalf("Parse with open quote returned nil error")
	}
}

func TestPlay_InvalidURLPromptsWithoutCall(t *testing.T) {
	sh, inv, out := newTestShell(t)
	sh.HandleLine(context.Background(), "play ftp://nope")
	if !strings.Contains(out.String(), gateway.PromptStreamURL) {
		t.Fatalf("output = %q, want stream URL prompt", out.String())
	}
	if len(inv.sent()) != 0 {
		t.Fatalf("invalid play sent a call")
	}
}

func TestPlay_Dispatches(t *testing.T) {
	sh, inv, _ := newTestShell(t)
	sh.HandleLine(context.Background(), "vol 30")
	awaitOutcome(t, sh)
	sh.HandleLine(context.Background(), "play https://jazz")
	if out := awaitOutcome(t, sh); out.Err != nil {
		t.Fatalf("play outcome error: %v", out.Err)
	}

	calls := inv.sent()
	if len(calls) != 2 || calls[1].Action != gateway.ActionPlay {
		t.Fatalf("calls = %+v, want setVolume then play", calls)
	}
	req := calls[1].Payload.(gateway.PlayRequest)
	if req.URL != "https://jazz" || req.Volume != 0.3 {
		t.Fatalf("play payload = %+v", req)
	}
	if sh.Overlay().State().Playing {
		t.Fatalf("play changed status before a push")
	}
}

func TestRadioCommandsRefusedWhileClosed(t *testing.T) {
	sh, inv, out := newTestShell(t)
	inject(t, sh, `{"type":"favorites","favorites":{"a":{"nickname":"bob","url":"http://bob"}}}`)
	inject(t, sh, `{"type":"ui","display":false}`)
	out.Reset()

	for _, line := range []string{"play https://jazz", "stop", "vol 30", "save Jazz https://jazz", "select bob", "del bob"} {
		sh.HandleLine(context.Background(), line)
	}
	if got := strings.Count(out.String(), "the radio is closed"); got != 6 {
		t.Fatalf("closed notices = %d, want 6; output %q", got, out.String())
	}
	if calls := inv.sent(); len(calls) != 0 {
		t.Fatalf("calls = %+v, want none while closed", calls)
	}
	if sh.Overlay().URLInput() != "" {
		t.Fatalf("URLInput = %q, want untouched", sh.Overlay().URLInput())
	}

	sh.HandleLine(context.Background(), "fav")
	if !strings.Contains(out.String(), "bob") {
		t.Fatalf("fav output = %q, want listing while closed", out.String())
	}

	inject(t, sh, `{"type":"ui","display":true}`)
	sh.HandleLine(context.Background(), "stop")
	awaitOutcome(t, sh)
	if calls := inv.sent(); len(calls) != 1 || calls[0].Action != gateway.ActionStop {
		t.Fatalf("calls = %+v, want stop after reopening", calls)
	}
}

func TestVolume_Relative(t *testing.T) {
	sh, inv, _ := newTestShell(t)
	sh.HandleLine(context.Background(), "vol -10")
	awaitOutcome(t, sh)
	calls := inv.sent()
	if len(calls) != 1 {
		t.Fatalf("calls = %+v, want one setVolume", calls)
	}
	if v := calls[0].Payload.(gateway.VolumeRequest).Volume; v < 0.399 || v > 0.401 {
		t.Fatalf("volume = %v, want 0.4", v)
	}
}

func TestDelete_AsksFirst(t *testing.T) {
	sh, inv, out := newTestShell(t)
	inject(t, sh, `{"type":"favorites","favorites":{
		"a":{"nickname":"bob","url":"http://bob"},
		"b":{"nickname":"Alice","url":"http://alice"}
	}}`)

	sh.HandleLine(context.Background(), "del bob")
	if !strings.Contains(out.String(), `delete favorite "bob"? [y/N]`) {
		t.Fatalf("output = %q, want confirmation prompt", out.String())
	}
	if len(inv.sent()) != 0 {
		t.Fatalf("delete sent before confirmation")
	}

	sh.HandleLine(context.Background(), "y")
	awaitOutcome(t, sh)
	calls := inv.sent()
	if len(calls) != 1 || calls[0].Action != gateway.ActionDeleteFavorite {
		t.Fatalf("calls = %+v, want deleteFavorite", calls)
	}
	if req := calls[0].Payload.(gateway.DeleteFavoriteRequest); req.FavUUID != "a" {
		t.Fatalf("payload = %+v, want favUUID a", req)
	}
	if sh.Overlay().Favorites().Len() != 2 {
		t.Fatalf("favorite removed before the backend pushed the list")
	}
}

func TestDelete_AnythingButYesKeeps(t *testing.T) {
	sh, inv, out := newTestShell(t)
	inject(t, sh, `{"type":"favorites","favorites":{"a":{"nickname":"bob","url":"http://bob"}}}`)

	sh.HandleLine(context.Background(), "del 1")
	sh.HandleLine(context.Background(), "stop")
	if len(inv.sent()) != 0 {
		t.Fatalf("answer line was treated as a command")
	}
	if !strings.Contains(out.String(), `kept "bob"`) {
		t.Fatalf("output = %q, want kept message", out.String())
	}
}

func TestSelectCopiesURL(t *testing.T) {
	sh, inv, _ := newTestShell(t)
	inject(t, sh, `{"type":"favorites","favorites":{"Rock":"http://rock"}}`)
	sh.HandleLine(context.Background(), "select rock")
	if sh.Overlay().URLInput() != "http://rock" {
		t.Fatalf("URLInput = %q, want http://rock", sh.Overlay().URLInput())
	}
	if len(inv.sent()) != 0 {
		t.Fatalf("select sent a call")
	}
}

func TestFavListing(t *testing.T) {
	sh, _, out := newTestShell(t)
	sh.HandleLine(context.Background(), "fav")
	if !strings.Contains(out.String(), "No favorites") {
		t.Fatalf("empty listing = %q, want placeholder", out.String())
	}

	out.Reset()
	inject(t, sh, `{"type":"favorites","favorites":{"a":{"nickname":"bob","url":"http://bob"},"b":{"nickname":"Alice","url":"http://alice"}}}`)
	out.Reset()
	sh.HandleLine(context.Background(), "ls")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "Alice") || !strings.Contains(lines[1], "bob") {
		t.Fatalf("listing = %q, want Alice before bob", out.String())
	}
}

func TestInjectAndStatus(t *testing.T) {
	sh, _, out := newTestShell(t)
	sh.HandleLine(context.Background(), `inject {"type":"updateState","state":{"playing":true,"url":"http://x","volume":0.42}}`)
	if !strings.Contains(out.String(), "* Playing http://x") || !strings.Contains(out.String(), "* volume 42%") {
		t.Fatalf("output = %q, want state echo", out.String())
	}

	out.Reset()
	sh.HandleLine(context.Background(), "status")
	for _, want := range []string{"status:   Playing", "stream:   http://x", "volume:   42%", "push:     connecting"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("status output = %q, missing %q", out.String(), want)
		}
	}
}

func TestLoop_QuitsAndEchoesPush(t *testing.T) {
	inv := &fakeInvoker{}
	out := &bytes.Buffer{}
	sh := New(Options{Invoker: inv, Out: out})

	lines := make(chan string)
	messages := make(chan push.Message, 1)
	msg, _ := push.Decode([]byte(`{"type":"ui","display":true}`))
	messages <- msg

	errCh := make(chan error, 1)
	go func() { errCh <- sh.Loop(context.Background(), lines, messages) }()

	lines <- "close"
	lines <- "quit"

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Loop returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Loop did not return after quit")
	}
	if !strings.Contains(out.String(), "Bye!") {
		t.Fatalf("output = %q, want goodbye", out.String())
	}
}
