// Package mpd adapts a Music Player Daemon server to player.Adapter.
package mpd

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"lirik/internal/player"
)

// conn is the subset of *mpd.Client the adapter uses.
type conn interface {
	Status() (mpd.Attrs, error)
	CurrentSong() (mpd.Attrs, error)
	Pause(pause bool) error
	Play(pos int) error
	Next() error
	Previous() error
	SetVolume(volume int) error
	SeekCur(d time.Duration, relative bool) error
	Random(random bool) error
	Repeat(repeat bool) error
	Single(single bool) error
	Close() error
}

// Client dials MPD for every operation so a restarted server is picked up
// without reconnect bookkeeping.
type Client struct {
	network  string
	addr     string
	password string
	dial     func() (conn, error)
}

var _ player.Adapter = (*Client)(nil)

// NewClient builds an adapter for the server at network/addr ("tcp", "localhost:6600"
// or "unix", "/run/mpd/socket").
func NewClient(network, addr, password string) *Client {
	if network == "" {
		network = "tcp"
	}
	c := &Client{network: network, addr: addr, password: password}
	c.dial = func() (conn, error) {
		if c.password != "" {
			return mpd.DialAuthenticated(c.network, c.addr, c.password)
		}
		return mpd.Dial(c.network, c.addr)
	}
	return c
}

func (c *Client) Name() string { return "mpd" }

func (c *Client) do(ctx context.Context, fn func(conn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cl, err := c.dial()
	if err != nil {
		return fmt.Errorf("dial mpd %s: %w", c.addr, err)
	}
	defer cl.Close()
	return fn(cl)
}

// CurrentPlayback maps MPD status and the current song onto NowPlaying.
func (c *Client) CurrentPlayback(ctx context.Context) (*player.NowPlaying, error) {
	var np *player.NowPlaying
	err := c.do(ctx, func(cl conn) error {
		status, err := cl.Status()
		if err != nil {
			return fmt.Errorf("mpd status: %w", err)
		}
		if status["state"] == "stop" || status["state"] == "" {
			return nil
		}
		song, err := cl.CurrentSong()
		if err != nil {
			return fmt.Errorf("mpd currentsong: %w", err)
		}
		np = toNowPlaying(c.addr, status, song)
		return nil
	})
	return np, err
}

func toNowPlaying(addr string, status, song mpd.Attrs) *player.NowPlaying {
	if len(song) == 0 {
		return nil
	}
	durationMs := secondsToMillis(status["duration"])
	if durationMs == 0 {
		durationMs = secondsToMillis(song["duration"])
	}
	progressMs := secondsToMillis(status["elapsed"])

	title := song["Title"]
	if title == "" {
		title = path.Base(song["file"])
	}
	np := &player.NowPlaying{
		Artist:     song["Artist"],
		Track:      title,
		Album:      song["Album"],
		ProgressMs: progressMs,
		Progress:   player.FormatTime(progressMs),
		DurationMs: durationMs,
		Duration:   player.FormatTime(durationMs),
		IsPlaying:  status["state"] == "play",
		Shuffle:    status["random"] == "1",
		Repeat:     repeatFromFlags(status["repeat"] == "1", status["single"] == "1"),
		Device:     &player.Device{Name: "mpd@" + addr, DeviceType: "Server"},
		Context:    &player.PlayContext{ContextType: "queue", URI: "mpd://" + addr},
	}
	if v, err := strconv.Atoi(status["volume"]); err == nil && v >= 0 {
		np.Device.Volume = &v
	}
	return np
}

func secondsToMillis(s string) int64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f * 1000)
}

func repeatFromFlags(repeat, single bool) player.RepeatMode {
	switch {
	case repeat && single:
		return player.RepeatTrack
	case repeat:
		return player.RepeatContext
	default:
		return player.RepeatOff
	}
}

func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, func(cl conn) error { return cl.Pause(true) })
}

// Resume unpauses, or starts playback from the queue when stopped.
func (c *Client) Resume(ctx context.Context) error {
	return c.do(ctx, func(cl conn) error {
		status, err := cl.Status()
		if err != nil {
			return err
		}
		if status["state"] == "stop" {
			return cl.Play(-1)
		}
		return cl.Pause(false)
	})
}

func (c *Client) Next(ctx context.Context) error {
	return c.do(ctx, func(cl conn) error { return cl.Next() })
}

func (c *Client) Previous(ctx context.Context) error {
	return c.do(ctx, func(cl conn) error { return cl.Previous() })
}

func (c *Client) SetVolume(ctx context.Context, percent int) error {
	return c.do(ctx, func(cl conn) error { return cl.SetVolume(percent) })
}

func (c *Client) Seek(ctx context.Context, positionMs int64) error {
	return c.do(ctx, func(cl conn) error {
		return cl.SeekCur(time.Duration(positionMs)*time.Millisecond, false)
	})
}

func (c *Client) SetShuffle(ctx context.Context, on bool) error {
	return c.do(ctx, func(cl conn) error { return cl.Random(on) })
}

func (c *Client) SetRepeat(ctx context.Context, mode player.RepeatMode) error {
	return c.do(ctx, func(cl conn) error {
		if err := cl.Repeat(mode != player.RepeatOff); err != nil {
			return err
		}
		return cl.Single(mode == player.RepeatTrack)
	})
}
