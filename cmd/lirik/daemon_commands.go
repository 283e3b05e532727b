package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lirik/internal/daemon"
	"lirik/internal/ipc"
	"lirik/internal/lifecycle"
	"lirik/internal/logging"
	"lirik/internal/render"
)

const defaultWebPort = "3000"

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var webPort int
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the daemon in the foreground (started automatically otherwise)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			f, err := logging.OpenFile(cfg.App.LogFile)
			if err != nil {
				return err
			}
			defer f.Close()

			var w io.Writer = f
			if stderrIsTerminal() {
				w = zerolog.MultiLevelWriter(f, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
			}
			if err := logging.Setup(ctx.logLevel(cfg), w, true); err != nil {
				return err
			}
			return daemon.Run(cmd.Context(), cfg, daemon.Options{WebPort: webPort})
		},
	}
	cmd.Flags().IntVar(&webPort, "web", 0, "Serve the web view, on port "+defaultWebPort+" unless --web=<port> is given")
	cmd.Flags().Lookup("web").NoOptDefVal = defaultWebPort
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return stopDaemon(cmd.OutOrStdout(), ctx.manager(cfg))
		},
	}
}

func stopDaemon(out io.Writer, m *lifecycle.Manager) error {
	res, err := m.Stop()
	if errors.Is(err, lifecycle.ErrNotRunning) {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}
	if err != nil {
		return err
	}
	if res.Forced {
		fmt.Fprintf(out, "Daemon (pid %d) did not exit, killed\n", res.PID)
	} else {
		fmt.Fprintf(out, "Daemon (pid %d) stopped\n", res.PID)
	}
	return nil
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon and start a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			m := ctx.manager(cfg)
			out := cmd.OutOrStdout()
			if err := stopDaemon(out, m); err != nil {
				return err
			}
			conn, err := m.Connect(cmd.Context())
			if err != nil {
				return err
			}
			conn.Close()
			if pid, ok := m.Status(); ok {
				fmt.Fprintf(out, "Daemon restarted (pid %d)\n", pid)
			} else {
				fmt.Fprintln(out, "Daemon restarted")
			}
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and playback status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pid, running := ctx.manager(cfg).Status()
			st := render.DaemonStatus{
				Running:    running,
				PID:        pid,
				SocketPath: cfg.App.SocketPath,
				Backend:    cfg.Player.Backend,
			}
			if running {
				// Status must not start a daemon, so dial directly.
				reqCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
				defer cancel()
				client := ipc.NewClient(ipc.Dialer{SocketPath: cfg.App.SocketPath})
				snap, err := client.FetchState(reqCtx)
				if err != nil {
					log.Warn().Err(err).Msg("Daemon did not answer")
				} else {
					st.Snapshot = &snap
				}
			}
			return render.Status(cmd.OutOrStdout(), st, time.Now())
		},
	}
}
