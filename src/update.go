package src

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"portalctl/src/logging"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case listingMsg:
		m.applyState(msg.state)
		if msg.err != nil {
			m.statusMsg = errorStyle.Render(fmt.Sprintf("Listing %s failed: %v", msg.state.Path, msg.err))
		} else {
			m.statusMsg = successStyle.Render(fmt.Sprintf("%d entries in %s", len(msg.state.Entries), msg.state.Path))
		}
		return m, nil
	case CommandResult:
		m.mode = explorerMode
		m.applyState(m.remote.State())
		if msg.Err != nil {
			logging.L().Warn("operation failed", zap.String("agent", m.remote.Agent()), zap.Error(msg.Err))
			m.statusMsg = errorStyle.Render(fmt.Sprintf("Command failed: %v", msg.Err))
		} else {
			m.clearMarks()
			m.statusMsg = successStyle.Render(msg.Output)
		}
		cmd = m.progress.SetPercent(0)
		return m, cmd
	case ProgressMsg:
		m.statusMsg = fmt.Sprintf("%d/%d done", msg.Done, msg.Total)
		cmd = m.progress.SetPercent(msg.Percent())
		return m, cmd
	case progress.FrameMsg:
		updated, cmd := m.progress.Update(msg)
		m.progress = updated.(progress.Model)
		return m, cmd
	case previewMsg:
		m.renderPreview(msg)
		if msg.err == nil {
			m.statusMsg = ""
		}
		return m, nil
	case shellDoneMsg:
		m.subShell = false
		if msg.err != nil {
			m.statusMsg = errorStyle.Render(fmt.Sprintf("Shell ended: %v", msg.err))
		} else {
			m.statusMsg = successStyle.Render("Shell detached")
		}
		return m, m.reload()
	case tea.WindowSizeMsg:
		w, h := msg.Width, msg.Height
		topHeight := lipgloss.Height(titleStyle.Render(appName+" "+version)) + 1
		contentHeight := h - topHeight - 9
		if contentHeight < 3 {
			contentHeight = 3
		}
		m.fileList.SetSize(w/2-4, contentHeight)
		m.preview.Width = w/2 - 6
		m.preview.Height = contentHeight
		m.commandInput.Width = w - 6
		m.progress.Width = w - 4
		return m, nil
	case tea.KeyMsg:
		if m.mode == progressMode {
			if msg.Type == tea.KeyCtrlC {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
		if m.mode == commandMode {
			return m.updateCommandLine(msg)
		}
		if m.fileList.FilterState() == list.Filtering {
			break
		}
		if key.Matches(msg, m.keys.quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.refresh) {
			return m, m.reload()
		}
		if key.Matches(msg, m.keys.back) {
			return m, m.up()
		}
		if key.Matches(msg, m.keys.cancel) && m.showPreview {
			m.showPreview = false
			return m, nil
		}
		if key.Matches(msg, m.keys.selectIt) {
			m.toggleMark()
			return m, nil
		}
		if key.Matches(msg, m.keys.execute) {
			selected, ok := m.selectedEntry()
			if !ok {
				return m, nil
			}
			if selected.IsDir() {
				return m, m.navigate(selected.Path)
			}
			cmd = m.loadPreview(selected)
			return m, cmd
		}
		if key.Matches(msg, m.keys.preview) {
			if selected, ok := m.selectedEntry(); ok {
				cmd = m.loadPreview(selected)
				return m, cmd
			}
			return m, nil
		}
		if key.Matches(msg, m.keys.download) {
			if selected, ok := m.selectedEntry(); ok {
				cmd = m.download(selected)
				return m, cmd
			}
			return m, nil
		}
		if key.Matches(msg, m.keys.move) {
			cmd = m.moveMarked()
			return m, cmd
		}
		if key.Matches(msg, m.keys.upload) {
			cmd = m.openCommandLine("put ")
			return m, cmd
		}
		if key.Matches(msg, m.keys.command) {
			cmd = m.openCommandLine("")
			return m, cmd
		}
		if key.Matches(msg, m.keys.subshell) {
			cmd = m.openSubShell()
			return m, cmd
		}
		if key.Matches(msg, m.keys.help) {
			m.statusMsg = "Help: enter opens, space marks, F6 moves marked entries into the selected directory, : runs a command"
			return m, nil
		}
	}
	if m.mode == explorerMode {
		m.fileList, cmd = m.fileList.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) openCommandLine(value string) tea.Cmd {
	m.mode = commandMode
	m.commandInput.SetValue(value)
	m.commandInput.CursorEnd()
	return m.commandInput.Focus()
}

func (m Model) updateCommandLine(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.execute):
		cmdStr := m.commandInput.Value()
		m.commandInput.Reset()
		m.commandInput.Blur()
		m.mode = explorerMode
		cmd = m.executeCommand(cmdStr)
		return m, cmd
	case key.Matches(msg, m.keys.cancel):
		m.commandInput.Reset()
		m.commandInput.Blur()
		m.mode = explorerMode
		return m, nil
	case key.Matches(msg, m.keys.complete):
		m.commandInput.SetValue(m.completeCommand(m.commandInput.Value()))
		m.commandInput.CursorEnd()
		return m, nil
	}
	m.commandInput, cmd = m.commandInput.Update(msg)
	return m, cmd
}
