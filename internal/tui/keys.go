package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/verte-zerg/numtrace/internal/model"
)

type keyMap struct {
	Undo  key.Binding
	Reset key.Binding
	Skip  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func newKeyMap(mode model.Mode) keyMap {
	k := keyMap{
		Undo: key.NewBinding(
			key.WithKeys("u", "backspace"),
			key.WithHelp("u", "undo stroke"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "start over"),
		),
		Skip: key.NewBinding(
			key.WithKeys("n", "tab"),
			key.WithHelp("n", "next glyph"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
	k.Undo.SetEnabled(mode == model.ModeDraw)
	return k
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Undo, k.Skip, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Undo, k.Reset},
		{k.Skip, k.Help, k.Quit},
	}
}
