// Package daemon assembles and runs the background process: the poll loop,
// the unix socket server and the optional web mirror and status bar hook.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"lirik/internal/app"
	"lirik/internal/config"
	"lirik/internal/ipc"
	"lirik/internal/lifecycle"
	"lirik/internal/player"
	"lirik/internal/state"
	"lirik/internal/statusbar"
	"lirik/internal/web"
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "daemon").Logger()
	return &l
}

// Options override what Run would otherwise build from the config.
type Options struct {
	// WebPort, when positive, replaces web.port.
	WebPort int
	Player  player.Adapter
	Lyrics  app.LyricsFetcher
}

// Run blocks until SIGINT/SIGTERM, ctx cancellation, or a fatal component
// error. The PID file and socket exist only while Run does.
func Run(ctx context.Context, cfg *config.Config, opts Options) (err error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pidFile, err := lifecycle.AcquirePIDFile(cfg.App.PIDPath)
	if err != nil {
		return fmt.Errorf("pid file %s: %w", cfg.App.PIDPath, err)
	}
	defer func() {
		if rerr := pidFile.Release(); rerr != nil {
			logger().Warn().Err(rerr).Msg("Failed to remove pid file")
		}
	}()

	adapter := opts.Player
	if adapter == nil {
		if adapter, err = NewPlayer(ctx, cfg); err != nil {
			return err
		}
	}
	fetcher := opts.Lyrics
	if fetcher == nil {
		lp, closeLyrics := NewLyrics(ctx, cfg)
		defer closeLyrics()
		fetcher = lp
	}

	store := state.NewStore()
	core := app.New(adapter, fetcher, store, cfg.App.PollInterval)

	srv := ipc.NewServer(cfg.App.SocketPath, core)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		if cerr := srv.Close(); cerr != nil {
			logger().Warn().Err(cerr).Msg("Failed to remove socket")
		}
	}()

	logger().Info().
		Int("pid", os.Getpid()).
		Str("player", adapter.Name()).
		Dur("poll_interval", cfg.App.PollInterval).
		Msg("Daemon started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return core.Run(gctx) })
	g.Go(func() error { return srv.Serve(gctx) })

	port := cfg.Web.Port
	if opts.WebPort > 0 {
		port = opts.WebPort
	}
	if port > 0 {
		mirror := web.NewServer(cfg.Web.Bind, port, core, store)
		g.Go(func() error { return mirror.Serve(gctx) })
	}

	if cfg.StatusBar.Process != "" {
		updates, cancel := store.Subscribe()
		defer cancel()
		notifier := statusbar.New(cfg.StatusBar.Process, cfg.StatusBar.Signal)
		g.Go(func() error { return notifier.Run(gctx, updates) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger().Error().Err(err).Msg("Daemon stopped with error")
		return err
	}
	logger().Info().Msg("Daemon stopped")
	return nil
}
