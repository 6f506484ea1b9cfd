package src

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"portalctl/src/listing"
	"portalctl/src/logging"
	"portalctl/src/navigator"
	"portalctl/src/transfer"
)

// executeCommand runs one line typed on the command line.
func (m *Model) executeCommand(cmdStr string) tea.Cmd {
	args := strings.Fields(cmdStr)
	if len(args) == 0 {
		m.statusMsg = errorStyle.Render("Empty command")
		return nil
	}
	cmdName := args[0]
	switch cmdName {
	case "cd":
		if len(args) < 2 {
			return m.navigate("/")
		}
		return m.navigate(m.resolve(args[1]))
	case "mv":
		if len(args) < 3 {
			m.statusMsg = errorStyle.Render("mv requires a name and a directory")
			return nil
		}
		src, ok := m.lookup(args[1])
		if !ok {
			m.statusMsg = errorStyle.Render("No such entry: " + args[1])
			return nil
		}
		dst, ok := m.lookup(args[2])
		if !ok {
			m.statusMsg = errorStyle.Render("No such directory: " + args[2])
			return nil
		}
		return m.move([]listing.Entry{src}, dst)
	case "get":
		if len(args) < 2 {
			m.statusMsg = errorStyle.Render("get requires a name")
			return nil
		}
		e, ok := m.lookup(args[1])
		if !ok {
			m.statusMsg = errorStyle.Render("No such entry: " + args[1])
			return nil
		}
		return m.download(e)
	case "put":
		if len(args) < 2 {
			m.statusMsg = errorStyle.Render("put requires local files")
			return nil
		}
		return m.upload(args[1:])
	case "refresh":
		return m.reload()
	case "shell":
		return m.openSubShell()
	case "log":
		if len(args) < 2 {
			m.statusMsg = successStyle.Render("Log level: " + logging.Level())
			return nil
		}
		if err := logging.SetLevel(args[1]); err != nil {
			m.statusMsg = errorStyle.Render("Unknown log level: " + args[1])
			return nil
		}
		logging.L().Info("log level changed", zap.String("level", logging.Level()))
		m.statusMsg = successStyle.Render("Log level: " + logging.Level())
		return nil
	default:
		m.statusMsg = errorStyle.Render("Unknown command: " + cmdName)
		return nil
	}
}

// resolve turns a command line path into an absolute remote path.
func (m *Model) resolve(p string) string {
	if strings.HasPrefix(p, "/") {
		return listing.Clean(p)
	}
	return listing.Clean(listing.JoinPath(m.state.Path, p))
}

// lookup finds name in the current listing. ".." is the parent directory.
func (m *Model) lookup(name string) (listing.Entry, bool) {
	if name == ".." {
		parent := listing.Parent(m.state.Path)
		return listing.Entry{Name: "..", Path: parent, Kind: listing.Directory}, true
	}
	return m.state.Find(strings.TrimSuffix(name, "/"))
}

func listingResult(st navigator.State, err error) tea.Msg {
	if errors.Is(err, navigator.ErrStale) {
		return nil
	}
	return listingMsg{state: st, err: err}
}

func (m *Model) navigate(path string) tea.Cmd {
	remote, ctx := m.remote, m.ctx
	return func() tea.Msg {
		err := remote.Navigate(ctx, path)
		return listingResult(remote.State(), err)
	}
}

func (m *Model) reload() tea.Cmd {
	remote, ctx := m.remote, m.ctx
	return func() tea.Msg {
		err := remote.Reload(ctx)
		return listingResult(remote.State(), err)
	}
}

func (m *Model) up() tea.Cmd {
	remote, ctx := m.remote, m.ctx
	return func() tea.Msg {
		err := remote.Up(ctx)
		return listingResult(remote.State(), err)
	}
}

// move moves every source into dst, one at a time, stopping at the first
// failure.
func (m *Model) move(sources []listing.Entry, dst listing.Entry) tea.Cmd {
	remote, ctx := m.remote, m.ctx
	m.mode = progressMode
	m.statusMsg = fmt.Sprintf("Moving %d item(s) to %s", len(sources), dst.Path)
	progress := m.ProgressChan
	return func() tea.Msg {
		for i, src := range sources {
			if err := remote.Move(ctx, src, dst); err != nil {
				return CommandResult{Err: err}
			}
			sendProgress(progress, ProgressMsg{Done: i + 1, Total: len(sources)})
		}
		return CommandResult{Output: fmt.Sprintf("Moved %d item(s) to %s", len(sources), dst.Path)}
	}
}

func (m *Model) moveMarked() tea.Cmd {
	dst, ok := m.selectedEntry()
	if !ok {
		return nil
	}
	if len(m.marked) == 0 {
		m.statusMsg = errorStyle.Render("Nothing marked, use space to mark entries")
		return nil
	}
	sources := make([]listing.Entry, 0, len(m.marked))
	for _, e := range m.marked {
		if e.Path != dst.Path {
			sources = append(sources, e)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return m.move(sources, dst)
}

func (m *Model) download(e listing.Entry) tea.Cmd {
	remote, ctx, sink, label := m.remote, m.ctx, m.sink, m.sinkLabel
	if sink == nil {
		m.statusMsg = errorStyle.Render("No download sink configured")
		return nil
	}
	m.statusMsg = "Downloading " + e.Name + "..."
	return func() tea.Msg {
		if err := remote.Download(ctx, e, sink); err != nil {
			return CommandResult{Err: err}
		}
		logging.L().Info("downloaded", zap.String("path", e.Path), zap.String("sink", label))
		return CommandResult{Output: fmt.Sprintf("Saved %s to %s", e.Name, label)}
	}
}

func (m *Model) upload(paths []string) tea.Cmd {
	remote, ctx, dir := m.remote, m.ctx, m.state.Path
	files := make([]transfer.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, transfer.LocalFile(expandHome(p)))
	}
	m.mode = progressMode
	m.statusMsg = fmt.Sprintf("Uploading %d file(s) to %s", len(files), dir)
	progress := m.ProgressChan
	return func() tea.Msg {
		err := remote.UploadTo(ctx, dir, files, func(done, total int) {
			sendProgress(progress, ProgressMsg{Done: done, Total: total})
		})
		if err != nil {
			return CommandResult{Err: err}
		}
		return CommandResult{Output: fmt.Sprintf("Uploaded %d file(s) to %s", len(files), dir)}
	}
}

func (m *Model) loadPreview(e listing.Entry) tea.Cmd {
	if e.IsDir() {
		return nil
	}
	if e.Size > maxPreviewSize {
		m.showPreview = true
		m.preview.SetContent("File too large for preview")
		return nil
	}
	remote, ctx := m.remote, m.ctx
	m.statusMsg = "Loading " + e.Name + "..."
	return func() tea.Msg {
		msg := previewMsg{entry: e}
		msg.err = remote.Download(ctx, e, transfer.SinkFunc(func(_ context.Context, data []byte, ct, _ string) error {
			msg.data, msg.contentType = data, ct
			return nil
		}))
		return msg
	}
}

func (m *Model) openSubShell() tea.Cmd {
	if m.shell == nil {
		m.statusMsg = errorStyle.Render("Shell attach is not available")
		return nil
	}
	m.subShell = true
	return tea.Exec(m.shell(), func(err error) tea.Msg { return shellDoneMsg{err: err} })
}

// sendProgress never blocks an operation on a slow or absent reader.
func sendProgress(ch chan ProgressMsg, msg ProgressMsg) {
	select {
	case ch <- msg:
	default:
	}
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := userHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
