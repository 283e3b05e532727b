// Package app is the daemon core: it polls the player, keeps lyrics for the
// current track and publishes snapshots.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lirik/internal/lyrics"
	"lirik/internal/player"
	"lirik/internal/state"
)

const pollTimeout = 10 * time.Second

// logger derives from the global logger on each call so it follows
// whatever logging.Setup installed.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "app").Logger()
	return &l
}

// LyricsFetcher returns lyrics for a track or nil.
type LyricsFetcher interface {
	Fetch(ctx context.Context, artist, track string, durationMs int64) *lyrics.Lyrics
}

type App struct {
	player   player.Adapter
	lyrics   LyricsFetcher
	store    *state.Store
	interval time.Duration
	wake     chan struct{}

	// Owned by the poll loop.
	currentKey    string
	currentLyrics *lyrics.Lyrics
}

func New(p player.Adapter, l LyricsFetcher, store *state.Store, interval time.Duration) *App {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &App{
		player:   p,
		lyrics:   l,
		store:    store,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Run polls until ctx is cancelled. A failed poll never stops the loop.
func (a *App) Run(ctx context.Context) error {
	logger().Info().
		Str("backend", a.player.Name()).
		Dur("interval", a.interval).
		Msg("Starting player poll loop")

	timer := time.NewTimer(a.interval)
	defer timer.Stop()
	for {
		a.poll(ctx)

		timer.Reset(a.interval)
		select {
		case <-ctx.Done():
			logger().Info().Msg("Poll loop stopped")
			return nil
		case <-timer.C:
		case <-a.wake:
			timer.Stop()
			logger().Debug().Msg("Early wake")
		}
	}
}

// Wake makes the poll loop run its next cycle immediately. It never blocks.
func (a *App) Wake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Snapshot returns the last published state.
func (a *App) Snapshot() state.Snapshot {
	return a.store.Snapshot()
}

func (a *App) poll(ctx context.Context) state.Snapshot {
	pctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	np, err := a.player.CurrentPlayback(pctx)
	if err != nil {
		logger().Warn().Err(err).Msg("Failed to get current playback")
		np = nil
	}

	if key := player.TrackKey(np); key != a.currentKey {
		a.currentKey = key
		a.currentLyrics = nil
		if np != nil {
			logger().Info().
				Str("artist", np.Artist).
				Str("track", np.Track).
				Msg("New song detected")
			a.currentLyrics = a.lyrics.Fetch(ctx, np.Artist, np.Track, np.DurationMs)
			if a.currentLyrics == nil {
				logger().Info().Msg("No lyrics for this track")
			}
		} else {
			logger().Info().Msg("Nothing playing")
		}
	}

	return a.store.Publish(np, a.currentLyrics)
}
