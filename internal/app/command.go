package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lirik/internal/player"
)

// ErrUnknownCommand wraps names outside the command table.
var ErrUnknownCommand = errors.New("unknown command")

// Commands lists the accepted command names.
var Commands = []string{"pause", "play", "toggle", "next", "prev", "volume", "seek", "shuffle", "repeat"}

// Execute runs one playback command against the player. toggle, shuffle and
// repeat decide from the last published snapshot. The caller is expected to
// Wake the loop afterwards so the change shows up promptly.
func (a *App) Execute(ctx context.Context, name string, arg *string) error {
	np := a.store.Snapshot().NowPlaying

	var err error
	switch name {
	case "pause":
		err = a.player.Pause(ctx)
	case "play":
		err = a.player.Resume(ctx)
	case "toggle":
		if np != nil && np.IsPlaying {
			err = a.player.Pause(ctx)
		} else {
			err = a.player.Resume(ctx)
		}
	case "next":
		err = a.player.Next(ctx)
	case "prev":
		err = a.player.Previous(ctx)
	case "volume":
		v, perr := intArg(arg, 0, 100)
		if perr != nil {
			return fmt.Errorf("volume: %w", perr)
		}
		err = a.player.SetVolume(ctx, int(v))
	case "seek":
		ms, perr := intArg(arg, 0, -1)
		if perr != nil {
			return fmt.Errorf("seek: %w", perr)
		}
		err = a.player.Seek(ctx, ms)
	case "shuffle":
		err = a.player.SetShuffle(ctx, np == nil || !np.Shuffle)
	case "repeat":
		mode := player.RepeatOff
		if np != nil {
			mode = np.Repeat
		}
		err = a.player.SetRepeat(ctx, mode.Next())
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	if err != nil {
		logger().Warn().Err(err).Str("cmd", name).Msg("Command failed")
		return err
	}
	logger().Info().Str("cmd", name).Msg("Command executed")
	return nil
}

// intArg parses a required integer argument within [lo, hi]; hi < 0 means
// no upper bound.
func intArg(arg *string, lo, hi int64) (int64, error) {
	if arg == nil || strings.TrimSpace(*arg) == "" {
		return 0, errors.New("missing argument")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(*arg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", *arg)
	}
	if v < lo || (hi >= 0 && v > hi) {
		if hi >= 0 {
			return 0, fmt.Errorf("%d out of range %d-%d", v, lo, hi)
		}
		return 0, fmt.Errorf("%d must be at least %d", v, lo)
	}
	return v, nil
}
