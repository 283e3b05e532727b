package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit        key.Binding
	Toggle      key.Binding
	Next        key.Binding
	Prev        key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	SeekForward key.Binding
	SeekBack    key.Binding
	Shuffle     key.Binding
	Repeat      key.Binding
	OffsetUp    key.Binding
	OffsetDown  key.Binding
	OffsetReset key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:        key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Next:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Prev:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		VolumeUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "volume")),
		VolumeDown:  key.NewBinding(key.WithKeys("-")),
		SeekForward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("←/→", "seek")),
		SeekBack:    key.NewBinding(key.WithKeys("left", "h")),
		Shuffle:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		Repeat:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		OffsetUp:    key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "lyric offset")),
		OffsetDown:  key.NewBinding(key.WithKeys("[")),
		OffsetReset: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset offset")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Prev, k.VolumeUp, k.SeekForward, k.Shuffle, k.Repeat, k.OffsetUp, k.Quit}
}
