package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global, active even while typing
	ForceQuit   key.Binding
	Tab         key.Binding
	ShiftTab    key.Binding
	Escape      key.Binding
	Confirm     key.Binding
	StopAlways  key.Binding
	Diagnostics key.Binding

	// Global, only when no text field has focus
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Play       key.Binding
	Stop       key.Binding

	// Volume slider
	VolumeDown key.Binding
	VolumeUp   key.Binding

	// Favorites list
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Delete key.Binding

	// Confirmation modal
	Yes key.Binding
	No  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next field"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close radio"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Play / apply / save"),
		),
		StopAlways: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Stop"),
		),
		Diagnostics: key.NewBinding(
			key.WithKeys("ctrl+l", "f2"),
			key.WithHelp("ctrl+l", "Diagnostics"),
		),

		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Play"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Stop"),
		),

		// Volume
		VolumeDown: key.NewBinding(
			key.WithKeys("left", "h", "-"),
			key.WithHelp("←/h", "Volume down"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("right", "l", "+", "="),
			key.WithHelp("→/l", "Volume up"),
		),

		// Favorites
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Bottom"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "Delete favorite"),
		),

		// Modal
		Yes: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "Confirm"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "Cancel"),
		),
	}
}

// ShortHelp implements help.KeyMap for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Confirm, k.StopAlways, k.Escape, k.Diagnostics, k.Help}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Confirm, k.Escape},
		{k.Play, k.Stop, k.StopAlways, k.VolumeDown, k.VolumeUp},
		{k.Up, k.Down, k.Delete},
		{k.Diagnostics, k.CycleTheme, k.Help, k.Quit},
	}
}
