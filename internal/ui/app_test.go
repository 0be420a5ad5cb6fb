package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carradio/internal/gateway"
	"github.com/five82/carradio/internal/prefs"
	"github.com/five82/carradio/internal/push"
	"github.com/five82/carradio/internal/radio"
	"github.com/five82/carradio/internal/state"
)

type fakeInvoker struct {
	mu    sync.Mutex
	calls []gateway.Call
	err   error
}

func (f *fakeInvoker) Invoke(ctx context.Context, action string, payload any) (gateway.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, gateway.Call{Action: action, Payload: payload})
	if f.err != nil {
		return nil, f.err
	}
	return gateway.Result{"ok": true}, nil
}

func (f *fakeInvoker) sent() []gateway.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Call(nil), f.calls...)
}

func newTestModel(t *testing.T) (Model, *fakeInvoker) {
	t.Helper()
	inv := &fakeInvoker{}
	m := New(Options{
		Invoker:   inv,
		Store:     &state.Store{},
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	// Static cursors keep Focus from returning blink timers.
	m.urlInput.Cursor.SetMode(cursor.CursorStatic)
	m.nicknameInput.Cursor.SetMode(cursor.CursorStatic)
	m.favURLInput.Cursor.SetMode(cursor.CursorStatic)

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = send(t, m, pushOf(t, `{"type":"ui","display":true}`))
	return m, inv
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func pushOf(t *testing.T, raw string) pushMsg {
	t.Helper()
	msg, err := push.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%s) returned error: %v", raw, err)
	}
	return pushMsg(msg)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = send(t, m, keyPress(string(r)))
	}
	return m
}

// runCmd executes cmd and returns the messages it produced, expanding batches.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func callResult(t *testing.T, cmd tea.Cmd) callResultMsg {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		if res, ok := msg.(callResultMsg); ok {
			return res
		}
	}
	t.Fatalf("command produced no call result")
	return callResultMsg{}
}

func TestPlay_InvalidURLShowsPromptWithoutCall(t *testing.T) {
	m, inv := newTestModel(t)
	m = typeText(t, m, "not a url")

	m, cmd := send(t, m, keyPress("enter"))
	if cmd != nil {
		runCmd(cmd)
	}
	if len(inv.sent()) != 0 {
		t.Fatalf("invalid URL sent %d calls", len(inv.sent()))
	}
	if m.notice.level != "warn" || m.notice.text != gateway.PromptStreamURL {
		t.Fatalf("notice = %+v, want stream URL prompt", m.notice)
	}
}

func TestPlay_DispatchesAndWaitsForPush(t *testing.T) {
	m, inv := newTestModel(t)
	m = typeText(t, m, "https://jazz.example/live")

	m, cmd := send(t, m, keyPress("enter"))
	res := callResult(t, cmd)
	if res.Err != nil {
		t.Fatalf("play outcome error: %v", res.Err)
	}
	calls := inv.sent()
	if len(calls) != 1 || calls[0].Action != gateway.ActionPlay {
		t.Fatalf("calls = %+v, want one play", calls)
	}
	req := calls[0].Payload.(gateway.PlayRequest)
	if req.URL != "https://jazz.example/live" || req.Volume != radio.DefaultVolume {
		t.Fatalf("payload = %+v", req)
	}
	if m.inFlight != 1 {
		t.Fatalf("inFlight = %d, want 1", m.inFlight)
	}

	m, _ = send(t, m, res)
	if m.inFlight != 0 {
		t.Fatalf("inFlight = %d after result, want 0", m.inFlight)
	}
	if m.overlay.State().Playing {
		t.Fatalf("play status changed before the backend pushed it")
	}

	m, _ = send(t, m, pushOf(t, `{"type":"updateState","state":{"playing":true,"url":"https://jazz.example/live"}}`))
	if m.playbackStatus() != statusPlaying {
		t.Fatalf("playbackStatus = %q, want playing", m.playbackStatus())
	}
}

func TestCallFailureIsDiagnosticOnly(t *testing.T) {
	m, inv := newTestModel(t)
	inv.err = &gateway.CallError{Action: gateway.ActionStop, Kind: gateway.KindBackend, Status: 500, Message: "500 Internal Server Error"}
	m, _ = send(t, m, pushOf(t, `{"type":"updateState","state":{"playing":true,"url":"http://x"}}`))

	m, cmd := send(t, m, keyPress("ctrl+s"))
	m, _ = send(t, m, callResult(t, cmd))

	if m.notice.level != "error" || !strings.Contains(m.notice.text, "stop") {
		t.Fatalf("notice = %+v, want stop failure", m.notice)
	}
	if !m.overlay.State().Playing {
		t.Fatalf("failed stop changed play status")
	}
	if last, ok := m.store.Snapshot().LastCall(); !ok || last.Err == nil {
		t.Fatalf("store LastCall = %+v, %v, want recorded failure", last, ok)
	}
}

func TestVolume_DebouncedRelease(t *testing.T) {
	m, inv := newTestModel(t)
	m, _ = send(t, m, keyPress("tab"))
	if m.focus != focusVolume {
		t.Fatalf("focus = %v, want volume", m.focus)
	}

	m, _ = send(t, m, keyPress("right"))
	m, _ = send(t, m, keyPress("right"))
	if !m.overlay.Dragging() || m.overlay.VolumeLabel() != "60%" {
		t.Fatalf("slider = %s dragging=%v, want 60%% while dragging", m.overlay.VolumeLabel(), m.overlay.Dragging())
	}

	m, cmd := send(t, m, volumeReleaseMsg{seq: m.volumeSeq - 1})
	if cmd != nil {
		t.Fatalf("stale release timer produced a command")
	}

	m, cmd = send(t, m, volumeReleaseMsg{seq: m.volumeSeq})
	callResult(t, cmd)
	calls := inv.sent()
	if len(calls) != 1 || calls[0].Action != gateway.ActionSetVolume {
		t.Fatalf("calls = %+v, want one setVolume", calls)
	}
	if got := radio.FormatVolume(calls[0].Payload.(gateway.VolumeRequest).Volume); got != "60%" {
		t.Fatalf("setVolume = %s, want 60%%", got)
	}
	if m.overlay.Dragging() {
		t.Fatalf("still dragging after release")
	}
}

func TestEscapeSendsClose(t *testing.T) {
	m, inv := newTestModel(t)
	m, cmd := send(t, m, keyPress("esc"))
	callResult(t, cmd)
	if calls := inv.sent(); len(calls) != 1 || calls[0].Action != gateway.ActionClose {
		t.Fatalf("calls = %+v, want close", calls)
	}
	if !m.overlay.Visible() {
		t.Fatalf("overlay hidden before the backend said so")
	}

	m, _ = send(t, m, pushOf(t, `{"type":"ui","display":false}`))
	if !strings.Contains(m.View(), "The radio is closed.") {
		t.Fatalf("closed view not rendered")
	}
}

func TestFavorites_SelectAndConfirmDelete(t *testing.T) {
	m, inv := newTestModel(t)
	m, _ = send(t, m, pushOf(t, `{"type":"favorites","favorites":{
		"a":{"nickname":"bob","url":"http://bob"},
		"b":{"nickname":"Alice","url":"http://alice"}
	}}`))

	m, _ = send(t, m, keyPress("tab"))
	m, _ = send(t, m, keyPress("tab"))
	if m.focus != focusFavorites {
		t.Fatalf("focus = %v, want favorites", m.focus)
	}

	m, _ = send(t, m, keyPress("down"))
	m, _ = send(t, m, keyPress("enter"))
	if m.urlInput.Value() != "http://bob" || m.focus != focusURL {
		t.Fatalf("select: url=%q focus=%v, want http://bob in focused URL field", m.urlInput.Value(), m.focus)
	}
	if len(inv.sent()) != 0 {
		t.Fatalf("selecting a favorite sent a call")
	}

	m, _ = send(t, m, keyPress("tab"))
	m, _ = send(t, m, keyPress("tab"))
	m, _ = send(t, m, keyPress("g"))
	m, _ = send(t, m, keyPress("x"))
	if m.modal == nil {
		t.Fatalf("delete did not open a confirmation")
	}
	if !strings.Contains(m.View(), `delete favorite "Alice"`) {
		t.Fatalf("confirmation view missing prompt")
	}

	m, cmd := send(t, m, keyPress("y"))
	if m.modal != nil {
		t.Fatalf("modal still open after answer")
	}
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("answer produced %d messages, want 1", len(msgs))
	}
	m, cmd = send(t, m, msgs[0])
	callResult(t, cmd)

	calls := inv.sent()
	if len(calls) != 1 || calls[0].Action != gateway.ActionDeleteFavorite {
		t.Fatalf("calls = %+v, want deleteFavorite", calls)
	}
	if req := calls[0].Payload.(gateway.DeleteFavoriteRequest); req.FavUUID != "b" {
		t.Fatalf("payload = %+v, want favUUID b", req)
	}
	if m.overlay.Favorites().Len() != 2 {
		t.Fatalf("favorite removed before the backend pushed the list")
	}
}

func TestFavorites_CancelledDeleteSendsNothing(t *testing.T) {
	m, inv := newTestModel(t)
	m, _ = send(t, m, pushOf(t, `{"type":"favorites","favorites":{"a":{"nickname":"bob","url":"http://bob"}}}`))
	m, _ = send(t, m, keyPress("tab"))
	m, _ = send(t, m, keyPress("tab"))
	m, _ = send(t, m, keyPress("x"))

	m, cmd := send(t, m, keyPress("n"))
	for _, msg := range runCmd(cmd) {
		m, cmd = send(t, m, msg)
		if cmd != nil {
			t.Fatalf("cancelled delete produced a command")
		}
	}
	if len(inv.sent()) != 0 {
		t.Fatalf("cancelled delete sent %d calls", len(inv.sent()))
	}
}

func TestSaveFavorite_ClearsForm(t *testing.T) {
	m, inv := newTestModel(t)
	for m.focus != focusNickname {
		m, _ = send(t, m, keyPress("tab"))
	}
	m = typeText(t, m, "Jazz")
	m, _ = send(t, m, keyPress("tab"))
	m = typeText(t, m, "https://jazz")

	m, cmd := send(t, m, keyPress("enter"))
	callResult(t, cmd)
	calls := inv.sent()
	if len(calls) != 1 || calls[0].Action != gateway.ActionSaveFavorite {
		t.Fatalf("calls = %+v, want saveFavorite", calls)
	}
	req := calls[0].Payload.(gateway.SaveFavoriteRequest)
	if req.Nickname != "Jazz" || req.URL != "https://jazz" {
		t.Fatalf("payload = %+v", req)
	}
	if m.nicknameInput.Value() != "" || m.favURLInput.Value() != "" {
		t.Fatalf("form not cleared: %q / %q", m.nicknameInput.Value(), m.favURLInput.Value())
	}
	if m.focus != focusNickname {
		t.Fatalf("focus = %v, want nickname after save", m.focus)
	}
}

func TestPushedURLFillsInput(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(t, m, pushOf(t, `{"type":"updateState","state":{"playing":true,"url":"http://rock","volume":0.3}}`))
	if m.urlInput.Value() != "http://rock" {
		t.Fatalf("urlInput = %q, want http://rock", m.urlInput.Value())
	}
	if !strings.Contains(m.View(), "30%") {
		t.Fatalf("view does not show pushed volume")
	}
}

func TestCycleThemeSavesPrefs(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(t, m, keyPress("tab")) // volume slider; letters are commands here
	m, _ = send(t, m, keyPress("T"))
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	saved, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load returned error: %v", err)
	}
	if saved.Theme != "Kanagawa" {
		t.Fatalf("saved theme = %q, want Kanagawa", saved.Theme)
	}
}

func TestLettersAreTextWhileTyping(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeText(t, m, "qpsT")
	if m.urlInput.Value() != "qpsT" {
		t.Fatalf("urlInput = %q, want letters typed verbatim", m.urlInput.Value())
	}
	if m.theme.Name != "Nightfox" {
		t.Fatalf("typing changed theme to %q", m.theme.Name)
	}
}

func TestLinkBadge(t *testing.T) {
	m, _ := newTestModel(t)
	if got := m.linkStatus(); got != statusConnecting {
		t.Fatalf("linkStatus = %q, want connecting", got)
	}

	m, _ = send(t, m, linkMsg(state.Snapshot{ConsecutiveFailures: 3, LastError: errors.New("dial refused")}))
	if got := m.linkStatus(); got != statusOffline {
		t.Fatalf("linkStatus = %q, want offline", got)
	}

	m, _ = send(t, m, linkMsg(state.Snapshot{Connected: true, Endpoint: "ws://car/push"}))
	if got := m.linkStatus(); got != statusOnline {
		t.Fatalf("linkStatus = %q, want online", got)
	}

	m, _ = send(t, m, pushClosedMsg{})
	if got := m.linkStatus(); got != statusOffline {
		t.Fatalf("linkStatus = %q after channel close, want offline", got)
	}
}

func TestDiagnosticsView(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(t, m, keyPress("ctrl+l"))
	if m.currentView != ViewDiagnostics {
		t.Fatalf("currentView = %v, want diagnostics", m.currentView)
	}
	m, _ = send(t, m, logTailMsg{
		"2026/10/19 21:01:05 [WARN] Skipping malformed favorite entry with id: x",
		"plain line",
	})
	view := m.View()
	if !strings.Contains(view, "Skipping malformed favorite entry") || !strings.Contains(view, "plain line") {
		t.Fatalf("diagnostics view missing log lines:\n%s", view)
	}

	m, _ = send(t, m, keyPress("esc"))
	if m.currentView != ViewRadio {
		t.Fatalf("esc did not leave diagnostics")
	}
}
