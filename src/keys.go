package src

import (
	"github.com/charmbracelet/bubbles/key"
)

type mode int

const (
	explorerMode mode = iota
	progressMode
	commandMode
)

type keyMap struct {
	quit     key.Binding
	execute  key.Binding
	cancel   key.Binding
	refresh  key.Binding
	back     key.Binding
	selectIt key.Binding
	filter   key.Binding
	down     key.Binding
	up       key.Binding
	preview  key.Binding
	download key.Binding
	move     key.Binding
	upload   key.Binding
	command  key.Binding
	complete key.Binding
	subshell key.Binding
	help     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit:     key.NewBinding(key.WithKeys("ctrl+c", "q", "f10"), key.WithHelp("q/ctrl+c", "quit")),
		execute:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/preview")),
		cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel/close preview")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		back:     key.NewBinding(key.WithKeys("backspace", "h", "left"), key.WithHelp("backspace", "cd ..")),
		selectIt: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "mark")),
		filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		down:     key.NewBinding(key.WithKeys("j", "down")),
		up:       key.NewBinding(key.WithKeys("k", "up")),
		preview:  key.NewBinding(key.WithKeys("p", "f3"), key.WithHelp("p/F3", "preview")),
		download: key.NewBinding(key.WithKeys("d", "f5"), key.WithHelp("d/F5", "download")),
		move:     key.NewBinding(key.WithKeys("f6"), key.WithHelp("F6", "move marked into dir")),
		upload:   key.NewBinding(key.WithKeys("u", "f7"), key.WithHelp("u/F7", "upload")),
		command:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		complete: key.NewBinding(key.WithKeys("tab")),
		subshell: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("Ctrl+O", "shell")),
		help:     key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "help")),
	}
}

func helpString(b key.Binding) string {
	h := b.Help()
	return h.Key + ": " + h.Desc
}
