package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	ui "portalctl/src"
	"portalctl/src/listing"
	"portalctl/src/logging"
	"portalctl/src/navigator"
	"portalctl/src/rpc"
	"portalctl/src/terminal"
	"portalctl/src/transfer"
)

const errorPrefix = "portalctl: "

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	dirStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
)

func newAgentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List agents registered with the control server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agents, err := a.client.Agents(cmd.Context())
			if err != nil {
				return err
			}
			printAgents(cmd.OutOrStdout(), agents)
			return nil
		},
	}
}

func printAgents(w io.Writer, agents []rpc.Agent) {
	cols := []int{38, 20, 10, 8, 16, 12, 16}
	cell := func(i int, s string) string {
		return lipgloss.NewStyle().Width(cols[i]).MaxWidth(cols[i]).Render(s)
	}
	row := func(style lipgloss.Style, fields ...string) string {
		cells := make([]string, len(fields))
		for i, f := range fields {
			cells[i] = cell(i, f)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	fmt.Fprintln(w, row(headerStyle, "ID", "HOST", "OS", "ARCH", "IP", "USER", "REGISTERED"))
	for _, ag := range agents {
		registered := "unknown"
		if !ag.Registered.IsZero() {
			registered = humanize.Time(ag.Registered)
		}
		fmt.Fprintln(w, row(lipgloss.NewStyle(), ag.ID, ag.Hostname, ag.OS, ag.Arch, ag.IP, ag.Username, registered))
	}
	if len(agents) == 0 {
		fmt.Fprintln(w, "no agents registered")
	}
}

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory on the agent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAgent(); err != nil {
				return err
			}
			p := "/"
			if len(args) == 1 {
				p = args[0]
			}
			nav := navigator.New(a.client, a.cfg.Agent)
			if err := nav.Navigate(cmd.Context(), p); err != nil {
				return err
			}
			printListing(cmd.OutOrStdout(), nav.State())
			return nil
		},
	}
}

func printListing(w io.Writer, st navigator.State) {
	crumbs := make([]string, 0, len(st.Crumbs))
	for _, c := range st.Crumbs {
		crumbs = append(crumbs, c.Label)
	}
	fmt.Fprintln(w, headerStyle.Render(strings.Join(crumbs, " / ")))
	for _, e := range st.Entries {
		size := "-"
		if !e.IsDir() {
			size = humanize.IBytes(uint64(e.Size))
		}
		name := e.Name
		if e.IsDir() {
			name = dirStyle.Render(name + "/")
		}
		fmt.Fprintf(w, "%s %10s %-12s %s\n", e.Permissions, size, e.Modified, name)
	}
}

func newGetCmd(a *app) *cobra.Command {
	var useSFTP bool
	cmd := &cobra.Command{
		Use:   "get <remote-path>",
		Short: "Download a file from the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAgent(); err != nil {
				return err
			}
			sink, label, closeSink, err := a.sink(useSFTP)
			if err != nil {
				return err
			}
			defer closeSink()
			remote := listing.Clean(args[0])
			if err := transfer.Download(cmd.Context(), a.client, a.cfg.Agent, remote, sink); err != nil {
				return err
			}
			name := listing.Base(remote)
			if ds, ok := sink.(transfer.DirSink); ok {
				label = ds.Target(name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Saved %s to %s", name, label)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&useSFTP, "sftp", false, "deliver to the configured SFTP host")
	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "put <local-file>...",
		Short: "Upload local files into a directory on the agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAgent(); err != nil {
				return err
			}
			files := make([]transfer.File, 0, len(args))
			for _, p := range args {
				files = append(files, transfer.LocalFile(p))
			}
			out := cmd.OutOrStdout()
			err := transfer.Upload(cmd.Context(), a.client, a.cfg.Agent, dir, files, func(done, total int) {
				fmt.Fprintf(out, "[%d/%d] %s\n", done, total, files[done-1].Name)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("Uploaded %d file(s) to %s", len(files), listing.Clean(dir))))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "to", "", "target directory on the agent")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source> <destination-dir>",
		Short: "Move a file or directory into another directory on the agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAgent(); err != nil {
				return err
			}
			ctx := cmd.Context()
			nav := navigator.New(a.client, a.cfg.Agent)
			src, err := lookupEntry(ctx, nav, args[0])
			if err != nil {
				return err
			}
			dst, err := lookupEntry(ctx, nav, args[1])
			if err != nil {
				return err
			}
			if err := nav.Move(ctx, src, dst); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Moved %s to %s", src.Path, dst.Path)))
			return nil
		},
	}
}

// lookupEntry lists the parent of p to learn what kind of entry it is.
func lookupEntry(ctx context.Context, nav *navigator.Navigator, p string) (listing.Entry, error) {
	p = listing.Clean(p)
	if p == "/" {
		return listing.Entry{Name: "/", Path: "/", Kind: listing.Directory}, nil
	}
	if err := nav.Navigate(ctx, listing.Parent(p)); err != nil {
		return listing.Entry{}, err
	}
	e, ok := nav.State().Find(listing.Base(p))
	if !ok {
		return listing.Entry{}, fmt.Errorf("%s: no such file or directory", p)
	}
	return e, nil
}

func newExecCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "exec [--type kind] [command...]",
		Short: "Run one command on the agent and print its result",
		Long: "Run one command on the agent and print its result. Shell commands need a command line; " +
			"the other types (" + kindNames() + ") are passed to the agent as given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAgent(); err != nil {
				return err
			}
			k, err := rpc.ParseKind(kind)
			if err != nil {
				return err
			}
			res, err := a.client.Execute(cmd.Context(), a.cfg.Agent, strings.Join(args, " "), k)
			if res.Output != "" {
				out := cmd.OutOrStdout()
				fmt.Fprint(out, res.Output)
				if !strings.HasSuffix(res.Output, "\n") {
					fmt.Fprintln(out)
				}
			}
			return err
		},
	}
	// Everything after the first argument belongs to the remote command.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&kind, "type", "t", string(rpc.Shell), "command type: "+kindNames())
	return cmd
}

func kindNames() string {
	names := make([]string, len(rpc.Kinds))
	for i, k := range rpc.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Attach this terminal to the agent's interactive shell (ctrl+] detaches)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.RequireAgent(); err != nil {
				return err
			}
			dialer, err := terminal.NewWebSocketDialer(a.cfg.Server, a.cfg.Agent)
			if err != nil {
				return err
			}
			return terminal.Attach(cmd.Context(), dialer, os.Stdin, os.Stdout)
		},
	}
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [path]",
		Short: "Open the file browser (default command)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := "/"
			if len(args) == 1 {
				start = args[0]
			}
			return a.browse(cmd.Context(), start)
		},
	}
}

func (a *app) browse(ctx context.Context, start string) error {
	if err := a.cfg.RequireAgent(); err != nil {
		return err
	}
	if _, err := a.client.Agent(ctx, a.cfg.Agent); err != nil {
		return err
	}
	dialer, err := terminal.NewWebSocketDialer(a.cfg.Server, a.cfg.Agent)
	if err != nil {
		return err
	}
	sink, label, closeSink, err := a.sink(false)
	if err != nil {
		return err
	}
	defer closeSink()

	logging.L().Info("browse", zap.String("agent", a.cfg.Agent), zap.String("path", start), zap.String("sink", label))
	return ui.Run(ctx, ui.Options{
		Remote:    navigator.New(a.client, a.cfg.Agent),
		StartPath: start,
		Sink:      sink,
		SinkLabel: label,
		Shell:     func() tea.ExecCommand { return ui.ShellCommand(dialer) },
	})
}
