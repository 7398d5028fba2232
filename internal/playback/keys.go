package playback

import (
	"github.com/alkime/docucast/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the player's key bindings.
type KeyMap struct {
	Toggle  key.Binding
	Back    key.Binding
	Forward key.Binding
	Slower  key.Binding
	Faster  key.Binding
	Jump    key.Binding
}

// DefaultKeyMap returns the default player bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		Back: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "-10s"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "+10s"),
		),
		Slower: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "slower"),
		),
		Faster: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "faster"),
		),
		Jump: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "jump"),
		),
	}
}

func (k KeyMap) help() string {
	return style.KeysHelp(k.Toggle, k.Back, k.Forward, k.Slower, k.Faster, k.Jump)
}
