package src

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"portalctl/src/listing"
	"portalctl/src/navigator"
	"portalctl/src/transfer"
)

type item struct {
	entry    listing.Entry
	selected bool
}

func (i item) Title() string {
	title := i.entry.Name
	switch i.entry.Kind {
	case listing.Directory:
		title = dirStyle.Render(title + "/")
	case listing.Link:
		title = linkStyle.Render(title + "@")
	}
	if i.selected {
		title = markedStyle.Render("* ") + title
	}
	return title
}

func (i item) Description() string {
	size := "--"
	if !i.entry.IsDir() {
		size = humanize.IBytes(uint64(i.entry.Size))
	}
	return fmt.Sprintf("%s | Size: %s | Mod: %s | %s", i.entry.Kind, size, i.entry.Modified, i.entry.Permissions)
}

func (i item) FilterValue() string { return i.entry.Name }

// CommandResult finishes a remote operation.
type CommandResult struct {
	Output string
	Err    error
}

// ProgressMsg reports upload progress.
type ProgressMsg struct {
	Done, Total int
}

func (p ProgressMsg) Percent() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

type listingMsg struct {
	state navigator.State
	err   error
}

type previewMsg struct {
	entry       listing.Entry
	contentType string
	data        []byte
	err         error
}

type shellDoneMsg struct {
	err error
}

// Options configures the browser.
type Options struct {
	Remote    Remote
	StartPath string
	// Sink receives downloads; SinkLabel describes it in status lines.
	Sink      transfer.Sink
	SinkLabel string
	// Shell builds the command run for ctrl+o. Nil disables shell attach.
	Shell func() tea.ExecCommand
}

type Model struct {
	ctx          context.Context
	remote       Remote
	sink         transfer.Sink
	sinkLabel    string
	shell        func() tea.ExecCommand
	startPath    string
	state        navigator.State
	fileList     list.Model
	marked       map[string]listing.Entry
	preview      viewport.Model
	showPreview  bool
	commandInput textinput.Model
	statusMsg    string
	keys         keyMap
	mode         mode
	progress     progress.Model
	quitting     bool
	subShell     bool
	ProgressChan chan ProgressMsg
}

func InitialModel(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "cd <path> | mv <name> <dir> | get <name> | put <local...> | shell | log <level>"
	ti.Width = 80
	del := list.NewDefaultDelegate()
	del.Styles.SelectedTitle = del.Styles.SelectedTitle.Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	del.Styles.NormalTitle = del.Styles.NormalTitle.Foreground(lipgloss.Color("#CCCCCC"))
	l := list.New([]list.Item{}, del, 0, 0)
	l.Title = "Root"
	l.Styles.Title = subtitleStyle
	l.SetShowFilter(true)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	pv := viewport.New(0, 0)
	pv.SetContent("Preview")
	prog := progress.New(progress.WithDefaultGradient())
	start := opts.StartPath
	if start == "" {
		start = "/"
	}
	sinkLabel := opts.SinkLabel
	if sinkLabel == "" {
		sinkLabel = "sink"
	}
	return Model{
		ctx:          context.Background(),
		remote:       opts.Remote,
		sink:         opts.Sink,
		sinkLabel:    sinkLabel,
		shell:        opts.Shell,
		startPath:    start,
		state:        opts.Remote.State(),
		fileList:     l,
		marked:       make(map[string]listing.Entry),
		preview:      pv,
		commandInput: ti,
		keys:         newKeyMap(),
		mode:         explorerMode,
		progress:     prog,
		ProgressChan: make(chan ProgressMsg, 16),
	}
}

func (m Model) Init() tea.Cmd {
	return m.navigate(m.startPath)
}
