package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	enter      key.Binding
	back       key.Binding
	background key.Binding
	submit     key.Binding
	reattach   key.Binding
	cancel     key.Binding
	remove     key.Binding
	open       key.Binding
	play       key.Binding
	stop       key.Binding
	mute       key.Binding
	solo       key.Binding
	seekBack   key.Binding
	seekFwd    key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		background: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "run in background"),
		),
		submit: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload"),
		),
		reattach: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "progress"),
		),
		cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel"),
		),
		remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "download"),
		),
		play: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),
		mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		solo: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "solo"),
		),
		seekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "seek back"),
		),
		seekFwd: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "seek forward"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back, k.background},
		{k.submit, k.reattach, k.cancel, k.remove, k.open},
		{k.play, k.stop, k.mute, k.solo, k.seekBack, k.seekFwd},
		{k.quit},
	}
}
