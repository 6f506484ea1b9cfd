package src

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"portalctl/src/listing"
	"portalctl/src/navigator"
	"portalctl/src/terminal"
	"portalctl/src/transfer"
)

// Remote is the filesystem of one agent as the browser sees it.
// *navigator.Navigator implements it.
type Remote interface {
	Agent() string
	State() navigator.State
	Navigate(ctx context.Context, path string) error
	Reload(ctx context.Context) error
	Up(ctx context.Context) error
	Move(ctx context.Context, source, destination listing.Entry) error
	UploadTo(ctx context.Context, dir string, files []transfer.File, progress transfer.Progress) error
	Download(ctx context.Context, entry listing.Entry, sink transfer.Sink) error
}

var _ Remote = (*navigator.Navigator)(nil)

// shellCommand hands the terminal to an attached shell session while the
// browser is suspended.
type shellCommand struct {
	dialer terminal.Dialer
	stdin  io.Reader
	stdout io.Writer
}

// ShellCommand returns an exec command attaching to the agent's shell.
func ShellCommand(dialer terminal.Dialer) tea.ExecCommand {
	return &shellCommand{dialer: dialer, stdin: os.Stdin, stdout: os.Stdout}
}

func (c *shellCommand) SetStdin(r io.Reader) { c.stdin = r }
func (c *shellCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *shellCommand) SetStderr(io.Writer) {}

func (c *shellCommand) Run() error {
	io.WriteString(c.stdout, "\r\nAttaching shell, ctrl+] to return.\r\n")
	return terminal.Attach(context.Background(), c.dialer, c.stdin, c.stdout)
}
