package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Badge keys, shared with the theme status colors.
const (
	statusPlaying    = "playing"
	statusStopped    = "stopped"
	statusHidden     = "hidden"
	statusOnline     = "online"
	statusConnecting = "connecting"
	statusOffline    = "offline"
)

// renderHeader renders the top bar: logo, playback badge, link badge and
// backend.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{
		bg.Render("carradio", styles.Logo),
		styles.StatusStyle(m.playbackStatus()).Render(m.playbackLabel()),
		styles.StatusStyle(m.linkStatus()).Render(m.linkLabel()),
	}

	if m.width >= 80 && m.backend != "" {
		parts = append(parts,
			bg.Render("backend", styles.FaintText)+bg.Spaces(1)+
				bg.Render(truncateMiddle(m.backend, 40), styles.MutedText))
	}
	if m.inFlight > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d pending", m.inFlight), styles.WarningText))
	}

	return bg.FillLine(bg.Join(parts, "  "), m.width)
}

func (m Model) playbackStatus() string {
	switch {
	case !m.overlay.Visible():
		return statusHidden
	case m.overlay.State().Playing:
		return statusPlaying
	default:
		return statusStopped
	}
}

func (m Model) playbackLabel() string {
	switch m.playbackStatus() {
	case statusHidden:
		return "CLOSED"
	case statusPlaying:
		return "▶ PLAYING"
	default:
		return "■ STOPPED"
	}
}

// linkStatus classifies push link health from the latest store snapshot.
func (m Model) linkStatus() string {
	switch {
	case m.pushClosed:
		return statusOffline
	case m.link.Connected:
		return statusOnline
	case m.link.IsOffline():
		return statusOffline
	default:
		return statusConnecting
	}
}

func (m Model) linkLabel() string {
	switch m.linkStatus() {
	case statusOnline:
		return "● LINK"
	case statusOffline:
		if m.link.ConsecutiveFailures > 0 {
			return fmt.Sprintf("○ OFFLINE ×%d", m.link.ConsecutiveFailures)
		}
		return "○ OFFLINE"
	default:
		return "◌ CONNECTING"
	}
}

// renderNotice renders the single status line above the footer.
func (m Model) renderNotice() string {
	styles := m.theme.Styles()
	if m.notice.text == "" {
		if m.link.LastError != nil && !m.link.Connected {
			return styles.FaintText.Render(truncate("push: "+m.link.LastError.Error(), m.width))
		}
		return ""
	}

	var style lipgloss.Style
	switch m.notice.level {
	case "error":
		style = styles.DangerText
	case "warn":
		style = styles.WarningText
	default:
		style = styles.AccentText
	}
	return style.Render(truncate(m.notice.text, m.width))
}
