package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/carradio/internal/radio"
)

const (
	playerPanelHeight = 5 // three rows plus border
	savePanelHeight   = 4 // two rows plus border
	volumeBarWidth    = 24
	labelWidth        = 11
)

// layout sizes the viewports for the current window.
func (m *Model) layout() {
	content := max(m.height-3, 6) // header, notice, footer
	inner := max(m.width-4, 10)   // border plus padding

	m.favViewport.Width = inner
	m.favViewport.Height = max(content-playerPanelHeight-savePanelHeight-3, 1)

	m.diagViewport.Width = max(m.width-2, 10)
	m.diagViewport.Height = max(content-diagLinkRows-1, 1)

	m.urlInput.Width = max(inner-labelWidth-1, 10)
	m.nicknameInput.Width = max(inner-labelWidth-1, 10)
	m.favURLInput.Width = max(inner-labelWidth-1, 10)

	m.updateFavViewport()
	m.updateDiagViewport()
}

// renderRadio renders the player, the favorites list and the save form.
func (m Model) renderRadio() string {
	if !m.overlay.Visible() {
		return m.renderClosed()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderPlayer(),
		m.renderFavorites(),
		m.renderSaveForm(),
	)
}

func (m Model) renderClosed() string {
	styles := m.theme.Styles()
	msg := lipgloss.JoinVertical(lipgloss.Center,
		styles.MutedText.Render("The radio is closed."),
		styles.FaintText.Render("It opens when the vehicle asks for it."),
	)
	return lipgloss.Place(m.width, max(m.height-3, 1), lipgloss.Center, lipgloss.Center, msg)
}

func (m Model) panel(focused bool) lipgloss.Style {
	styles := m.theme.Styles()
	if focused {
		return styles.PanelFocused.Width(max(m.width-2, 10))
	}
	return styles.Panel.Width(max(m.width-2, 10))
}

func (m Model) renderPlayer() string {
	styles := m.theme.Styles()
	st := m.overlay.State()

	status := styles.StatusStyle(m.playbackStatus()).Render(m.overlay.StatusLabel())
	nowPlaying := styles.FaintText.Render("nothing")
	if st.URL != "" {
		nowPlaying = styles.Text.Render(truncateMiddle(st.URL, max(m.width-labelWidth-20, 10)))
	}

	rows := []string{
		m.label("Status") + status + "  " + nowPlaying,
		m.label("Stream URL") + m.urlInput.View(),
		m.label("Volume") + m.renderVolume(),
	}
	focused := m.focus == focusURL || m.focus == focusVolume
	return m.panel(focused).Render(strings.Join(rows, "\n"))
}

func (m Model) renderVolume() string {
	styles := m.theme.Styles()
	v := m.overlay.Volume()
	filled := int(math.Round(v * volumeBarWidth))

	barStyle := styles.AccentText
	if m.focus == focusVolume {
		barStyle = styles.WarningText
	}
	bar := barStyle.Render(strings.Repeat("█", filled)) +
		styles.FaintText.Render(strings.Repeat("░", volumeBarWidth-filled))

	label := styles.Text.Render(" " + m.overlay.VolumeLabel())
	if m.overlay.Dragging() {
		label += styles.FaintText.Render(" (adjusting)")
	} else if backend := m.overlay.State().Volume; radio.FormatVolume(backend) != m.overlay.VolumeLabel() {
		label += styles.FaintText.Render(" (radio " + radio.FormatVolume(backend) + ")")
	}
	return bar + label
}

func (m Model) renderFavorites() string {
	styles := m.theme.Styles()
	view := m.overlay.Favorites()
	title := styles.AccentText.Bold(true).Render("Favorites")
	if !view.Empty {
		title += styles.FaintText.Render(fmt.Sprintf(" (%d)", view.Len()))
	}
	return m.panel(m.focus == focusFavorites).Render(title + "\n" + m.favViewport.View())
}

// updateFavViewport re-renders the favorites rows and keeps the cursor row
// in view.
func (m *Model) updateFavViewport() {
	styles := m.theme.Styles()
	view := m.overlay.Favorites()

	if view.Empty {
		m.favViewport.SetContent(styles.FaintText.Render(view.Placeholder))
		m.favViewport.GotoTop()
		return
	}

	nameWidth := 0
	for _, item := range view.Items {
		nameWidth = max(nameWidth, len([]rune(item.Name)))
	}
	nameWidth = min(nameWidth, 24)
	urlWidth := max(m.favViewport.Width-nameWidth-4, 8)

	lines := make([]string, 0, len(view.Items))
	for i, item := range view.Items {
		name := padRight(truncate(item.Name, nameWidth), nameWidth)
		line := name + "  " + truncateMiddle(item.URL, urlWidth)
		if i == m.favCursor && m.focus == focusFavorites {
			lines = append(lines, styles.Selected.Render("› "+line))
			continue
		}
		lines = append(lines, styles.Text.Render("  "+name)+"  "+styles.MutedText.Render(truncateMiddle(item.URL, urlWidth)))
	}
	m.favViewport.SetContent(strings.Join(lines, "\n"))

	h := m.favViewport.Height
	switch {
	case h <= 0:
	case m.favCursor < m.favViewport.YOffset:
		m.favViewport.SetYOffset(m.favCursor)
	case m.favCursor >= m.favViewport.YOffset+h:
		m.favViewport.SetYOffset(m.favCursor - h + 1)
	}
}

func (m Model) renderSaveForm() string {
	rows := []string{
		m.label("Nickname") + m.nicknameInput.View(),
		m.label("URL") + m.favURLInput.View(),
	}
	focused := m.focus == focusNickname || m.focus == focusFavURL
	return m.panel(focused).Render(strings.Join(rows, "\n"))
}

func (m Model) label(text string) string {
	return m.theme.Styles().MutedText.Render(padRight(text, labelWidth))
}
