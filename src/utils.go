package src

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"portalctl/src/listing"
	"portalctl/src/navigator"
	"portalctl/src/transfer"
)

var userHomeDir = os.UserHomeDir

// applyState replaces the list contents with a navigator snapshot.
func (m *Model) applyState(st navigator.State) {
	pathChanged := st.Path != m.state.Path
	m.state = st
	entries := append([]listing.Entry(nil), st.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name < entries[j].Name
	})
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		_, marked := m.marked[e.Path]
		items = append(items, item{entry: e, selected: marked})
	}
	m.fileList.SetItems(items)
	m.fileList.Title = crumbTitle(st.Crumbs)
	if pathChanged {
		m.fileList.ResetSelected()
		m.showPreview = false
	}
}

func crumbTitle(crumbs []navigator.Breadcrumb) string {
	labels := make([]string, 0, len(crumbs))
	for _, c := range crumbs {
		labels = append(labels, c.Label)
	}
	return strings.Join(labels, breadcrumbDivider)
}

func (m *Model) selectedEntry() (listing.Entry, bool) {
	it, ok := m.fileList.SelectedItem().(item)
	if !ok {
		return listing.Entry{}, false
	}
	return it.entry, true
}

// toggleMark flips the mark on the selected entry and redraws its row.
func (m *Model) toggleMark() {
	idx := m.fileList.Index()
	it, ok := m.fileList.SelectedItem().(item)
	if !ok {
		return
	}
	if _, marked := m.marked[it.entry.Path]; marked {
		delete(m.marked, it.entry.Path)
		it.selected = false
	} else {
		m.marked[it.entry.Path] = it.entry
		it.selected = true
	}
	m.fileList.SetItem(idx, it)
	m.fileList.CursorDown()
}

func (m *Model) clearMarks() {
	m.marked = make(map[string]listing.Entry)
	items := m.fileList.Items()
	for i, li := range items {
		if it, ok := li.(item); ok && it.selected {
			it.selected = false
			m.fileList.SetItem(i, it)
		}
	}
}

// renderPreview fills the preview pane with a downloaded file.
func (m *Model) renderPreview(msg previewMsg) {
	m.showPreview = true
	if msg.err != nil {
		m.preview.SetContent(errorStyle.Render(fmt.Sprintf("Preview failed: %v", msg.err)))
		return
	}
	if !transfer.IsText(msg.contentType) && !looksText(msg.data) {
		m.preview.SetContent(fmt.Sprintf("Non-text file: %s (%s)", msg.contentType, humanize.IBytes(uint64(len(msg.data)))))
		return
	}
	content := string(msg.data)
	lines := strings.Split(content, "\n")
	if len(lines) > previewLines {
		lines = lines[:previewLines]
		content = strings.Join(lines, "\n") + "\n..."
	}
	lexer := lexers.Match(msg.entry.Name)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		m.preview.SetContent(content)
		return
	}
	var sb strings.Builder
	if err := chromaFormatter.Format(&sb, chromaStyle, iterator); err != nil {
		m.preview.SetContent(content)
		return
	}
	m.preview.SetContent(sb.String())
	m.preview.GotoTop()
}

// looksText accepts extensionless files such as scripts and configs.
func looksText(data []byte) bool {
	if len(data) > 512 {
		data = data[:512]
	}
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}

// completeCommand completes the last word of the command line against the
// current listing.
func (m *Model) completeCommand(input string) string {
	args := strings.Fields(input)
	if len(args) < 2 || strings.HasSuffix(input, " ") {
		return input
	}
	if args[0] == "put" {
		return input
	}
	prefix := args[len(args)-1]
	var matches []listing.Entry
	for _, e := range m.state.Entries {
		if strings.HasPrefix(e.Name, prefix) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return input
	}
	names := make([]string, 0, len(matches))
	for _, e := range matches {
		names = append(names, e.Name)
	}
	common := commonPrefix(names)
	if len(matches) == 1 && matches[0].IsDir() {
		common += "/"
	} else if len(matches) > 1 {
		m.statusMsg = strings.Join(names, " ")
	}
	if len(common) <= len(prefix) {
		return input
	}
	return strings.Join(append(args[:len(args)-1], common), " ")
}

func commonPrefix(strs []string) string {
	if len(strs) == 0 {
		return ""
	}
	prefix := strs[0]
	for _, s := range strs[1:] {
		i := 0
		for ; i < len(prefix) && i < len(s) && prefix[i] == s[i]; i++ {
		}
		prefix = prefix[:i]
		if prefix == "" {
			return ""
		}
	}
	return prefix
}
