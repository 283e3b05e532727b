package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"lirik/internal/logging"
	"lirik/internal/render"
	"lirik/internal/tui"
)

type viewFlags struct {
	json    bool
	plain   bool
	current bool
	reverse bool
	watch   bool
	offset  int64
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	var flags viewFlags

	rootCmd := &cobra.Command{
		Use:   "lirik",
		Short: "Now-playing lyrics in your terminal",
		Long: `lirik shows synced lyrics for what is playing. Without flags it opens the
interactive view; the daemon it talks to is started on demand.

Flags combine: -pcr is --plain --current --reverse.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return logging.Setup(ctx.logLevelFlag, cmd.ErrOrStderr(), false)
			}
			return ctx.setupConsoleLogging(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := ctx.client()
			if err != nil {
				return err
			}
			offset := cfg.App.LyricsOffsetMs
			if cmd.Flags().Changed("offset") {
				offset = flags.offset
			}
			out := cmd.OutOrStdout()

			if !flags.watch && !flags.plain && !flags.json {
				// The TUI owns the terminal.
				if err := logging.Setup(ctx.logLevel(cfg), io.Discard, true); err != nil {
					return err
				}
				return tui.Run(tui.Options{Context: cmd.Context(), Client: client, OffsetMs: offset})
			}

			switch {
			case flags.watch:
				return render.NewWatcher(flags.json, offset).Run(cmd.Context(), out, client)
			case flags.plain:
				snap, err := client.FetchState(cmd.Context())
				if err != nil {
					return err
				}
				return render.Plain(out, snap, time.Now(), render.PlainOptions{
					FromCurrent: flags.current,
					Reverse:     flags.reverse,
					OffsetMs:    offset,
				})
			default:
				snap, err := client.FetchState(cmd.Context())
				if err != nil {
					return err
				}
				return render.JSON(out, snap, time.Now(), offset)
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&ctx.configFlag, "config", "", "Configuration file path")
	pf.StringVar(&ctx.socketFlag, "socket", "", "Path to the daemon socket")
	pf.StringVar(&ctx.logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")

	f := rootCmd.Flags()
	f.BoolVarP(&flags.json, "json", "j", false, "Print track, progress, current lyric and all lyrics as JSON")
	f.BoolVarP(&flags.plain, "plain", "p", false, "Print all lyrics")
	f.BoolVarP(&flags.current, "current", "c", false, "With --plain, start at the current line")
	f.BoolVarP(&flags.reverse, "reverse", "r", false, "With --plain, reverse the output order")
	f.BoolVarP(&flags.watch, "watch", "w", false, "Stream lyrics line by line as they play")
	f.Int64VarP(&flags.offset, "offset", "o", 0, "Shift lyrics timing in ms (positive = earlier)")

	rootCmd.AddCommand(newDaemonCommand(ctx))
	rootCmd.AddCommand(newStopCommand(ctx))
	rootCmd.AddCommand(newRestartCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newCtlCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newAuthCommand(ctx))

	return rootCmd
}
