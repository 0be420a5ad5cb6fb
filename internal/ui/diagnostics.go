package ui

import (
	"fmt"
	"strings"
	"time"
)

// diagLinkRows is the height of the link summary above the log.
const diagLinkRows = 4

// renderDiagnostics renders link health, recent calls and the log tail.
func (m Model) renderDiagnostics() string {
	styles := m.theme.Styles()

	var b strings.Builder
	for _, row := range m.linkRows() {
		b.WriteString(" ")
		b.WriteString(row)
		b.WriteString("\n")
	}
	title := styles.AccentText.Bold(true).Render(" Log")
	if m.logPath != "" {
		title += styles.FaintText.Render("  " + truncateMiddle(m.logPath, max(m.width-10, 10)))
	}
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(m.diagViewport.View())
	return b.String()
}

func (m Model) linkRows() []string {
	styles := m.theme.Styles()
	link := m.link
	now := time.Now()

	linkRow := m.label("Push") + styles.StatusStyle(m.linkStatus()).Render(m.linkLabel())
	if link.Connected {
		linkRow += styles.MutedText.Render(fmt.Sprintf("  %s for %s", link.Endpoint, humanizeDuration(now.Sub(link.ConnectedSince))))
	} else if link.LastError != nil {
		linkRow += styles.DangerText.Render("  " + truncate(link.LastError.Error(), max(m.width-40, 10)))
	}

	msgRow := m.label("Messages") + styles.Text.Render(fmt.Sprintf("%d", link.Messages))
	if link.LastMessageType != "" {
		msgRow += styles.MutedText.Render(fmt.Sprintf("  last %s %s ago", link.LastMessageType, humanizeDuration(now.Sub(link.LastMessageAt))))
	}

	callRow := m.label("Last call") + styles.FaintText.Render("none")
	if call, ok := link.LastCall(); ok {
		result := styles.SuccessText.Render("ok")
		if call.Err != nil {
			result = styles.DangerText.Render(truncate(call.Err.Error(), max(m.width-40, 10)))
		}
		callRow = m.label("Last call") + styles.Text.Render(call.Action) + "  " + result +
			styles.FaintText.Render(fmt.Sprintf("  %s ago", humanizeDuration(now.Sub(call.At))))
	}

	failed := 0
	for _, c := range link.Calls {
		if c.Err != nil {
			failed++
		}
	}
	callsRow := m.label("Calls") + styles.Text.Render(fmt.Sprintf("%d recent", len(link.Calls)))
	if failed > 0 {
		callsRow += styles.DangerText.Render(fmt.Sprintf("  %d failed", failed))
	}

	return []string{linkRow, msgRow, callRow, callsRow}
}

// updateDiagViewport re-renders the log tail and follows the newest line.
func (m *Model) updateDiagViewport() {
	styles := m.theme.Styles()
	if m.diagErr != nil {
		m.diagViewport.SetContent(styles.DangerText.Render("Unable to read log: " + m.diagErr.Error()))
		return
	}
	if len(m.diagEntries) == 0 {
		m.diagViewport.SetContent(styles.FaintText.Render("No log output yet."))
		return
	}

	atBottom := m.diagViewport.AtBottom()
	lines := make([]string, 0, len(m.diagEntries))
	for _, e := range m.diagEntries {
		if e.Level == "" {
			lines = append(lines, styles.MutedText.Render(e.Message))
			continue
		}
		level := styles.LevelStyle(e.Level).Render(padRight(strings.ToUpper(e.Level), 5))
		lines = append(lines, styles.FaintText.Render(e.Time)+" "+level+" "+styles.Text.Render(e.Message))
	}
	m.diagViewport.SetContent(strings.Join(lines, "\n"))
	if atBottom || m.diagViewport.YOffset == 0 {
		m.diagViewport.GotoBottom()
	}
}
