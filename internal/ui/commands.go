package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carradio/internal/gateway"
	"github.com/five82/carradio/internal/logtail"
	"github.com/five82/carradio/internal/push"
	"github.com/five82/carradio/internal/state"
)

// Messages

// pushMsg carries one decoded message from the push stream.
type pushMsg push.Message

// pushClosedMsg is sent once the push channel is closed.
type pushClosedMsg struct{}

// callResultMsg carries the outcome of a backend call.
type callResultMsg gateway.Outcome

// volumeReleaseMsg fires after the slider has been still for a moment.
type volumeReleaseMsg struct {
	seq int
}

// tickMsg is sent periodically to refresh link health.
type tickMsg time.Time

// linkMsg carries a fresh link health snapshot.
type linkMsg state.Snapshot

// logTailMsg carries the last lines of the log file.
type logTailMsg []string

// logErrorMsg indicates the log file could not be read.
type logErrorMsg struct {
	err error
}

// Commands

// waitForPush blocks on the push channel and hands one message to Update.
// Update re-arms it after every message.
func waitForPush(ch <-chan push.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return pushClosedMsg{}
		}
		return pushMsg(msg)
	}
}

// dispatchCmd sends call to the backend off the UI goroutine.
func dispatchCmd(ctx context.Context, inv gateway.Invoker, store *state.Store, call gateway.Call) tea.Cmd {
	return func() tea.Msg {
		out := gateway.Dispatch(ctx, inv, call)
		if store != nil {
			store.RecordCall(call.Action, out.Err)
		}
		return callResultMsg(out)
	}
}

func volumeReleaseCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return volumeReleaseMsg{seq: seq}
	})
}

// tickCmd returns a command that sends a tick after the given duration.
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchLinkCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return linkMsg(store.Snapshot())
	}
}

// readLogCmd reads the tail of the log file.
func readLogCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logTailMsg(nil)
		}
		lines, err := logtail.Read(path, diagnosticsLines)
		if err != nil {
			return logErrorMsg{err: err}
		}
		return logTailMsg(lines)
	}
}
