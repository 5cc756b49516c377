package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the device screen.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Refresh   key.Binding
	Start     key.Binding
	Stop      key.Binding
	Telemetry key.Binding
	LogUp     key.Binding
	LogDown   key.Binding
	Quit      key.Binding
}

// DefaultKeyMap mirrors the buttons of the desktop tool: list drives,
// start and stop the benchmark, start metrics.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "x"),
		key.WithHelp("space", "select"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "list drives"),
	),
	Start: key.NewBinding(
		key.WithKeys("b", "enter"),
		key.WithHelp("b", "benchmark"),
	),
	Stop: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stop"),
	),
	Telemetry: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "metrics"),
	),
	LogUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("pgup", "scroll log"),
	),
	LogDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("pgdn", "scroll log"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Refresh, k.Start, k.Stop, k.Telemetry, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.Refresh, k.Start, k.Stop, k.Telemetry},
		{k.LogUp, k.LogDown, k.Quit},
	}
}
