package lifecycle

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the controller's key bindings. Playback keys live with the
// player.
type KeyMap struct {
	Select   key.Binding
	Submit   key.Binding
	Change   key.Binding
	Tone     key.Binding
	Length   key.Binding
	Depth    key.Binding
	Humor    key.Binding
	Download key.Binding
	Reset    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select file"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "create podcast"),
		),
		Change: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "change file"),
		),
		Tone: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tone"),
		),
		Length: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "length"),
		),
		Depth: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "depth"),
		),
		Humor: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "humor"),
		),
		Download: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save mp3"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "start over"),
		),
	}
}
