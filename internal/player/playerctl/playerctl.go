// Package playerctl drives MPRIS players through the playerctl binary.
package playerctl

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"lirik/internal/player"
)

const metadataFormat = "{{status}}\t{{artist}}\t{{title}}\t{{album}}\t{{mpris:artUrl}}\t{{xesam:url}}\t{{mpris:length}}\t{{position}}\t{{playerName}}\t{{volume}}"

// Runner executes playerctl and returns its stdout.
type Runner func(ctx context.Context, args ...string) (string, error)

// Client implements player.Adapter on top of playerctl.
type Client struct {
	player string
	run    Runner
}

var _ player.Adapter = (*Client)(nil)

// NewClient targets the named player, or whichever player playerctl picks when empty.
func NewClient(name string) *Client {
	return &Client{player: name, run: execRunner}
}

func execRunner(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "playerctl", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Client) Name() string { return "playerctl" }

func (c *Client) cmd(ctx context.Context, args ...string) (string, error) {
	if c.player != "" {
		args = append([]string{"--player", c.player}, args...)
	}
	return c.run(ctx, args...)
}

// CurrentPlayback reads metadata plus shuffle/loop state. playerctl exits non-zero
// when no player is running, which is reported as nothing playing.
func (c *Client) CurrentPlayback(ctx context.Context) (*player.NowPlaying, error) {
	out, err := c.cmd(ctx, "metadata", "--format", metadataFormat)
	if err != nil || out == "" {
		return nil, nil
	}
	np, err := parseMetadata(out)
	if err != nil || np == nil {
		return np, err
	}
	if s, err := c.cmd(ctx, "shuffle"); err == nil {
		np.Shuffle = strings.EqualFold(s, "on")
	}
	if l, err := c.cmd(ctx, "loop"); err == nil {
		np.Repeat = repeatFromLoop(l)
	}
	return np, nil
}

func parseMetadata(out string) (*player.NowPlaying, error) {
	fields := strings.Split(out, "\t")
	if len(fields) < 10 {
		return nil, fmt.Errorf("unexpected playerctl output: %q", out)
	}
	status := fields[0]
	if status == "Stopped" || fields[2] == "" {
		return nil, nil
	}
	durationMs := microsToMillis(fields[6])
	progressMs := microsToMillis(fields[7])
	if durationMs > 0 && progressMs > durationMs {
		progressMs = durationMs
	}

	np := &player.NowPlaying{
		Artist:     fields[1],
		Track:      fields[2],
		Album:      fields[3],
		ProgressMs: progressMs,
		Progress:   player.FormatTime(progressMs),
		DurationMs: durationMs,
		Duration:   player.FormatTime(durationMs),
		IsPlaying:  status == "Playing",
		Repeat:     player.RepeatOff,
		Device:     &player.Device{Name: fields[8], DeviceType: "MPRIS"},
	}
	if art := fields[4]; art != "" {
		np.AlbumArt = &art
	}
	if u := fields[5]; u != "" {
		np.ExternalURL = &u
	}
	if v, err := strconv.ParseFloat(fields[9], 64); err == nil {
		vol := int(v*100 + 0.5)
		np.Device.Volume = &vol
	}
	return np, nil
}

func microsToMillis(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v / 1000
}

func repeatFromLoop(s string) player.RepeatMode {
	switch strings.ToLower(s) {
	case "playlist":
		return player.RepeatContext
	case "track":
		return player.RepeatTrack
	default:
		return player.RepeatOff
	}
}

func loopFromRepeat(m player.RepeatMode) string {
	switch m {
	case player.RepeatContext:
		return "Playlist"
	case player.RepeatTrack:
		return "Track"
	default:
		return "None"
	}
}

func (c *Client) Pause(ctx context.Context) error {
	_, err := c.cmd(ctx, "pause")
	return err
}

func (c *Client) Resume(ctx context.Context) error {
	_, err := c.cmd(ctx, "play")
	return err
}

func (c *Client) Next(ctx context.Context) error {
	_, err := c.cmd(ctx, "next")
	return err
}

func (c *Client) Previous(ctx context.Context) error {
	_, err := c.cmd(ctx, "previous")
	return err
}

func (c *Client) SetVolume(ctx context.Context, percent int) error {
	_, err := c.cmd(ctx, "volume", strconv.FormatFloat(float64(percent)/100, 'f', 2, 64))
	return err
}

func (c *Client) Seek(ctx context.Context, positionMs int64) error {
	_, err := c.cmd(ctx, "position", strconv.FormatFloat(float64(positionMs)/1000, 'f', 3, 64))
	return err
}

func (c *Client) SetShuffle(ctx context.Context, on bool) error {
	state := "Off"
	if on {
		state = "On"
	}
	_, err := c.cmd(ctx, "shuffle", state)
	return err
}

func (c *Client) SetRepeat(ctx context.Context, mode player.RepeatMode) error {
	_, err := c.cmd(ctx, "loop", loopFromRepeat(mode))
	return err
}
