package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carradio/internal/favorites"
	"github.com/five82/carradio/internal/gateway"
	"github.com/five82/carradio/internal/logging"
	"github.com/five82/carradio/internal/logtail"
	"github.com/five82/carradio/internal/prefs"
	"github.com/five82/carradio/internal/push"
	"github.com/five82/carradio/internal/radio"
	"github.com/five82/carradio/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewRadio View = iota
	ViewDiagnostics
)

// focusArea is the control receiving keys on the radio view.
type focusArea int

const (
	focusURL focusArea = iota
	focusVolume
	focusFavorites
	focusNickname
	focusFavURL
	focusCount
)

const (
	volumeReleaseDelay = 400 * time.Millisecond
	linkRefreshEvery   = time.Second
	diagnosticsLines   = 400
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Invoker   gateway.Invoker
	Store     *state.Store
	Messages  <-chan push.Message
	Backend   string
	LogPath   string
	PrefsPath string
	Prefs     prefs.Prefs
}

// notice is the one-line message under the main view.
type notice struct {
	text  string
	level string // "info", "warn" or "error"
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	invoker   gateway.Invoker
	store     *state.Store
	messages  <-chan push.Message
	backend   string
	logPath   string
	prefsPath string
	prefs     prefs.Prefs

	// UI state
	theme       Theme
	keys        keyMap
	help        help.Model
	currentView View
	width       int
	height      int
	ready       bool
	focus       focusArea
	showHelp    bool
	modal       Modal

	// Radio state
	overlay       *radio.Overlay
	urlInput      textinput.Model
	nicknameInput textinput.Model
	favURLInput   textinput.Model
	favCursor     int
	favViewport   viewport.Model
	volumeSeq     int
	inFlight      int
	notice        notice

	// Link state
	link       state.Snapshot
	pushClosed bool

	// Diagnostics state
	diagViewport viewport.Model
	diagEntries  []logtail.Entry
	diagErr      error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	userPrefs := opts.Prefs
	if userPrefs.Theme == "" {
		userPrefs = prefs.Defaults()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:           ctx,
		invoker:       opts.Invoker,
		store:         opts.Store,
		messages:      opts.Messages,
		backend:       opts.Backend,
		logPath:       opts.LogPath,
		prefsPath:     prefsPath,
		prefs:         userPrefs,
		theme:         GetTheme(userPrefs.Theme),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		currentView:   ViewRadio,
		overlay:       radio.New(),
		urlInput:      newInput("https://stream.example/live", 2048),
		nicknameInput: newInput("Nickname", 64),
		favURLInput:   newInput("Stream URL", 2048),
		favViewport:   viewport.New(0, 0),
		diagViewport:  viewport.New(0, 0),
	}
	m.urlInput.Focus()
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Prompt = ""
	return in
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		tickCmd(linkRefreshEvery),
	}
	if m.messages != nil {
		cmds = append(cmds, waitForPush(m.messages))
	}
	if m.store != nil {
		cmds = append(cmds, fetchLinkCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.layout()
		return m, nil

	case pushMsg:
		m.applyPush(push.Message(msg))
		return m, waitForPush(m.messages)

	case pushClosedMsg:
		m.pushClosed = true
		return m, nil

	case callResultMsg:
		if m.inFlight > 0 {
			m.inFlight--
		}
		m.handleOutcome(gateway.Outcome(msg))
		return m, nil

	case volumeReleaseMsg:
		if msg.seq != m.volumeSeq || !m.overlay.Dragging() {
			return m, nil
		}
		cmd := m.dispatch(m.overlay.ReleaseVolume())
		return m, cmd

	case confirmResultMsg:
		call, ok := m.overlay.ResolveDelete(msg.Token, msg.Accepted)
		if !ok {
			return m, nil
		}
		cmd := m.dispatch(call)
		return m, cmd

	case tickMsg:
		return m.handleTick()

	case linkMsg:
		m.link = state.Snapshot(msg)
		return m, nil

	case logTailMsg:
		m.diagEntries = logtail.ParseLines(msg)
		m.diagErr = nil
		m.updateDiagViewport()
		return m, nil

	case logErrorMsg:
		m.diagErr = msg.err
		m.updateDiagViewport()
		return m, nil
	}

	// Cursor blink and other input internals go to the focused field.
	return m.updateFocusedInput(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Diagnostics):
		if m.currentView == ViewDiagnostics {
			m.currentView = ViewRadio
			return m, nil
		}
		m.currentView = ViewDiagnostics
		return m, readLogCmd(m.logPath)

	case key.Matches(msg, m.keys.StopAlways):
		cmd := m.dispatch(m.overlay.Stop())
		return m, cmd
	}

	if m.currentView == ViewDiagnostics {
		return m.handleDiagnosticsKey(msg)
	}

	if !m.overlay.Visible() {
		return m.handleGlobalKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Escape):
		if call, ok := m.overlay.Escape(); ok {
			cmd := m.dispatch(call)
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		cmd := m.setFocus((m.focus + 1) % focusCount)
		return m, cmd

	case key.Matches(msg, m.keys.ShiftTab):
		cmd := m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, cmd
	}

	if !m.typing() {
		if model, cmd, handled := m.handleCommandKey(msg); handled {
			return model, cmd
		}
	}

	switch m.focus {
	case focusURL:
		if key.Matches(msg, m.keys.Confirm) {
			return m.play()
		}
	case focusVolume:
		return m.handleVolumeKey(msg)
	case focusFavorites:
		return m.handleFavoritesKey(msg)
	case focusNickname, focusFavURL:
		if key.Matches(msg, m.keys.Confirm) {
			return m.saveFavorite()
		}
	}
	return m.updateFocusedInput(msg)
}

// handleGlobalKey serves keys that work even while the radio is closed.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	model, cmd, _ := m.handleCommandKey(msg)
	return model, cmd
}

func (m Model) handleCommandKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil, true

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		if m.prefsPath != "" {
			if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
				logging.Warnf("save prefs: %v", err)
			}
		}
		m.updateFavViewport()
		return m, nil, true
	}

	if !m.overlay.Visible() {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Play):
		model, cmd := m.play()
		return model.(Model), cmd, true
	case key.Matches(msg, m.keys.Stop):
		cmd := m.dispatch(m.overlay.Stop())
		return m, cmd, true
	}
	return m, nil, false
}

func (m Model) handleVolumeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.VolumeDown):
		m.overlay.NudgeVolume(-m.prefs.StepFraction())
	case key.Matches(msg, m.keys.VolumeUp):
		m.overlay.NudgeVolume(m.prefs.StepFraction())
	case key.Matches(msg, m.keys.Confirm):
		m.volumeSeq++
		if !m.overlay.Dragging() {
			return m, nil
		}
		cmd := m.dispatch(m.overlay.ReleaseVolume())
		return m, cmd
	default:
		return m, nil
	}
	// Each nudge restarts the release timer; only the last one sends.
	m.volumeSeq++
	return m, volumeReleaseCmd(m.volumeSeq, volumeReleaseDelay)
}

func (m Model) handleFavoritesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.overlay.Favorites()
	count := view.Len()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.favCursor > 0 {
			m.favCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.favCursor < count-1 {
			m.favCursor++
		}
	case key.Matches(msg, m.keys.Top):
		m.favCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.favCursor = max(count-1, 0)
	case key.Matches(msg, m.keys.Confirm):
		item, ok := m.selectedFavorite()
		if !ok || !m.overlay.Select(item.ID) {
			return m, nil
		}
		m.syncInputs()
		m.setNotice("info", fmt.Sprintf("Selected %s", item.Name))
		cmd := m.setFocus(focusURL)
		return m, cmd
	case key.Matches(msg, m.keys.Delete):
		item, ok := m.selectedFavorite()
		if !ok {
			return m, nil
		}
		conf, err := m.overlay.RequestDelete(item.ID)
		if err != nil {
			m.showError(err)
			return m, nil
		}
		m.modal = newConfirmModal(conf)
		return m, nil
	}
	m.updateFavViewport()
	return m, nil
}

func (m Model) handleDiagnosticsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewRadio
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	}
	var cmd tea.Cmd
	m.diagViewport, cmd = m.diagViewport.Update(msg)
	return m, cmd
}

func (m Model) play() (tea.Model, tea.Cmd) {
	call, err := m.overlay.Play()
	if err != nil {
		m.showError(err)
		return m, nil
	}
	m.clearNotice()
	cmd := m.dispatch(call)
	return m, cmd
}

func (m Model) saveFavorite() (tea.Model, tea.Cmd) {
	call, err := m.overlay.SaveFavorite()
	if err != nil {
		m.showError(err)
		return m, nil
	}
	m.syncInputs()
	m.clearNotice()
	send := m.dispatch(call)
	focus := m.setFocus(focusNickname)
	return m, tea.Batch(send, focus)
}

// handleTick refreshes link health and, when visible, the diagnostics tail.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(linkRefreshEvery)}
	if m.store != nil {
		cmds = append(cmds, fetchLinkCmd(m.store))
	}
	if m.currentView == ViewDiagnostics {
		cmds = append(cmds, readLogCmd(m.logPath))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applyPush(msg push.Message) {
	m.overlay.Apply(msg)
	if m.store != nil {
		m.store.RecordMessage(msg.Type, msg.ReceivedAt)
	}
	m.pushClosed = false
	if msg.Type == push.TypeUI && !m.overlay.Visible() {
		m.modal = nil
	}
	m.syncInputs()
	m.clampCursor()
	m.updateFavViewport()
}

func (m *Model) dispatch(call gateway.Call) tea.Cmd {
	m.inFlight++
	return dispatchCmd(m.ctx, m.invoker, m.store, call)
}

func (m *Model) handleOutcome(out gateway.Outcome) {
	if out.Err == nil {
		return
	}
	var callErr *gateway.CallError
	if errors.As(out.Err, &callErr) {
		m.setNotice("error", callErr.Error())
		return
	}
	m.showError(out.Err)
}

func (m *Model) showError(err error) {
	var inputErr *gateway.InputError
	if errors.As(err, &inputErr) {
		m.setNotice("warn", inputErr.Prompt)
		return
	}
	m.setNotice("error", err.Error())
}

func (m *Model) setNotice(level, text string) {
	m.notice = notice{level: level, text: text}
}

func (m *Model) clearNotice() {
	m.notice = notice{}
}

// typing reports whether a text field has focus, in which case letter keys
// are text rather than commands.
func (m Model) typing() bool {
	switch m.focus {
	case focusURL, focusNickname, focusFavURL:
		return true
	}
	return false
}

func (m *Model) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	m.urlInput.Blur()
	m.nicknameInput.Blur()
	m.favURLInput.Blur()
	m.updateFavViewport()
	if m.overlay.Dragging() && f != focusVolume {
		// Leaving the slider counts as releasing it.
		m.volumeSeq++
		return m.dispatch(m.overlay.ReleaseVolume())
	}
	switch f {
	case focusURL:
		return m.urlInput.Focus()
	case focusNickname:
		return m.nicknameInput.Focus()
	case focusFavURL:
		return m.favURLInput.Focus()
	}
	return nil
}

func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusURL:
		m.urlInput, cmd = m.urlInput.Update(msg)
		m.overlay.SetURLInput(m.urlInput.Value())
	case focusNickname:
		m.nicknameInput, cmd = m.nicknameInput.Update(msg)
		m.overlay.SetNicknameInput(m.nicknameInput.Value())
	case focusFavURL:
		m.favURLInput, cmd = m.favURLInput.Update(msg)
		m.overlay.SetFavoriteURLInput(m.favURLInput.Value())
	}
	return m, cmd
}

// syncInputs copies overlay-owned values back into the text fields after the
// overlay changed them (a pushed URL, a cleared save form).
func (m *Model) syncInputs() {
	syncInput(&m.urlInput, m.overlay.URLInput())
	syncInput(&m.nicknameInput, m.overlay.NicknameInput())
	syncInput(&m.favURLInput, m.overlay.FavoriteURLInput())
}

func syncInput(in *textinput.Model, value string) {
	if in.Value() == value {
		return
	}
	in.SetValue(value)
	in.CursorEnd()
}

func (m *Model) clampCursor() {
	count := m.overlay.Favorites().Len()
	if m.favCursor >= count {
		m.favCursor = max(count-1, 0)
	}
}

func (m Model) selectedFavorite() (favorites.Item, bool) {
	view := m.overlay.Favorites()
	if m.favCursor < 0 || m.favCursor >= view.Len() {
		return favorites.Item{}, false
	}
	return view.Items[m.favCursor], true
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.currentView {
	case ViewDiagnostics:
		b.WriteString(m.renderDiagnostics())
	default:
		b.WriteString(m.renderRadio())
	}
	b.WriteString("\n")

	b.WriteString(m.renderNotice())
	b.WriteString("\n")
	b.WriteString(m.theme.Styles().Footer.Render(m.help.View(m.keys)))

	return b.String()
}

// Run starts the Bubble Tea program.
func Run(opts Options, programOpts ...tea.ProgramOption) error {
	m := New(opts)
	programOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(m.ctx)}, programOpts...)
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
