package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/carradio/internal/radio"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// confirmResultMsg carries the user's answer to a delete confirmation.
type confirmResultMsg struct {
	Token    uint64
	Accepted bool
}

// confirmModal asks whether a favorite should really be deleted.
type confirmModal struct {
	conf radio.Confirmation
}

func newConfirmModal(conf radio.Confirmation) confirmModal {
	return confirmModal{conf: conf}
}

func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Yes):
		return c, c.answer(true), true
	case key.Matches(keyMsg, keys.No):
		return c, c.answer(false), true
	}
	return c, nil, false
}

func (c confirmModal) answer(accepted bool) tea.Cmd {
	token := c.conf.Token
	return func() tea.Msg {
		return confirmResultMsg{Token: token, Accepted: accepted}
	}
}

func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.DangerText.Render("Delete favorite"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(c.conf.Prompt))
	b.WriteString("\n\n")
	b.WriteString(styles.WarningText.Render("y"))
	b.WriteString(styles.MutedText.Render(" delete   "))
	b.WriteString(styles.WarningText.Render("n"))
	b.WriteString(styles.MutedText.Render(" keep"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Danger)).
		Padding(1, 2).
		Width(min(60, max(30, width-4)))

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
