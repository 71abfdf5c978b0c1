package internal

import (
	"countdown/internal/state"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Start  key.Binding
	Pause  key.Binding
	Resume key.Binding
	Reset  key.Binding
	Quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Start: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s", "start"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p/space", "pause"),
		),
		Resume: key.NewBinding(
			key.WithKeys("u", " "),
			key.WithHelp("u/space", "resume"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// sync enables exactly the bindings whose button is enabled.
func (k *keyMap) sync(c state.Controls) {
	k.Start.SetEnabled(c.Start)
	k.Pause.SetEnabled(c.Pause)
	k.Resume.SetEnabled(c.Resume)
	k.Reset.SetEnabled(c.Reset)
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Resume, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
