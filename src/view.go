package src

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.subShell {
		return ""
	}
	title := titleStyle.Render(appName+" "+version) + " " + subtitleStyle.Render("agent "+m.remote.Agent())
	help := subtitleStyle.Render(strings.Join([]string{
		helpString(m.keys.quit),
		helpString(m.keys.execute),
		helpString(m.keys.refresh),
		helpString(m.keys.back),
		helpString(m.keys.selectIt),
		helpString(m.keys.filter),
		helpString(m.keys.preview),
		helpString(m.keys.download),
		helpString(m.keys.move),
		helpString(m.keys.upload),
		helpString(m.keys.command),
		helpString(m.keys.subshell),
		helpString(m.keys.help),
	}, " • "))
	fBar := fBarStyle.Render(fBarContent)
	if m.mode == progressMode {
		return lipgloss.JoinVertical(lipgloss.Left, title, m.progress.View(), m.statusMsg, fBar, help)
	}
	pwd := subtitleStyle.Render(crumbTitle(m.state.Crumbs))
	if m.state.Loading {
		pwd += " (loading)"
	}
	if len(m.marked) > 0 {
		pwd += markedStyle.Render(" [" + strconv.Itoa(len(m.marked)) + " marked]")
	}
	content := listStyle.Render(m.fileList.View())
	if m.showPreview {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, previewStyle.Render(m.preview.View()))
	}
	parts := []string{title, pwd, content}
	if m.mode == commandMode {
		parts = append(parts, inputStyle.Render(m.commandInput.View()))
	}
	parts = append(parts, m.statusMsg, fBar, help)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
