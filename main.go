package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"portalctl/src/config"
	"portalctl/src/logging"
	"portalctl/src/rpc"
	"portalctl/src/transfer"
)

const tuiLogFile = "portalctl.log"

type rootFlags struct {
	server   string
	agent    string
	envFile  string
	logLevel string
	logFile  string
	timeout  time.Duration
}

// app is shared by every subcommand once the root pre-run has loaded
// configuration and logging.
type app struct {
	flags  rootFlags
	cfg    *config.Config
	client *rpc.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Operator console for remote agents",
		Long:          "Browse, transfer files to and from, and open interactive shells on agents registered with a control server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.browse(cmd.Context(), "/")
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.server, "server", "", "control server base url (PORTAL_SERVER)")
	pf.StringVarP(&a.flags.agent, "agent", "a", "", "agent id (PORTAL_AGENT)")
	pf.StringVar(&a.flags.envFile, "env-file", ".env", "optional env file")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error (PORTAL_LOG_LEVEL)")
	pf.StringVar(&a.flags.logFile, "log-file", "", "log destination (PORTAL_LOG_FILE)")
	pf.DurationVar(&a.flags.timeout, "timeout", 0, "per request timeout (PORTAL_TIMEOUT)")

	cmd.AddCommand(
		newAgentsCmd(a),
		newLsCmd(a),
		newGetCmd(a),
		newPutCmd(a),
		newMvCmd(a),
		newExecCmd(a),
		newShellCmd(a),
		newBrowseCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.envFile)
	if err != nil {
		return err
	}
	if a.flags.server != "" {
		cfg.Server = a.flags.server
	}
	if a.flags.agent != "" {
		cfg.Agent = a.flags.agent
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
	if a.flags.logFile != "" {
		cfg.LogFile = a.flags.logFile
	}
	if a.flags.timeout > 0 {
		cfg.Timeout = a.flags.timeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logPath := cfg.LogFile
	// The browser owns the terminal, so it logs to a file by default.
	if logPath == "" && (cmd == cmd.Root() || cmd.Name() == "browse") {
		logPath = tuiLogFile
	}
	if err := logging.Init(cfg.Logging(logPath)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	a.cfg = cfg
	a.client = rpc.New(rpc.Config{BaseURL: cfg.Server, Timeout: cfg.Timeout})
	logging.L().Debug("configured",
		zap.String("server", cfg.Server),
		zap.String("agent", cfg.Agent),
		zap.Duration("timeout", cfg.Timeout))
	return nil
}

// sink picks the download destination: SFTP when configured or forced,
// otherwise the local download directory.
func (a *app) sink(forceSFTP bool) (transfer.Sink, string, func() error, error) {
	if forceSFTP && !a.cfg.UseSFTP() {
		return nil, "", nil, fmt.Errorf("--sftp needs PORTAL_SFTP_ADDR")
	}
	if a.cfg.UseSFTP() {
		sc := a.cfg.SFTP()
		s, err := transfer.DialSFTP(sc)
		if err != nil {
			return nil, "", nil, err
		}
		return s, fmt.Sprintf("sftp://%s@%s/%s", sc.User, sc.Addr, sc.Dir), s.Close, nil
	}
	return transfer.DirSink{Dir: a.cfg.DownloadDir}, a.cfg.DownloadDir, func() error { return nil }, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorPrefix+err.Error())
		os.Exit(1)
	}
}
