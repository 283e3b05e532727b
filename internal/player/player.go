package player

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when a backend is selected without the settings it needs.
var ErrNotConfigured = errors.New("player backend not configured")

// RepeatMode mirrors the three repeat states every backend is mapped onto.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatContext RepeatMode = "context"
	RepeatTrack   RepeatMode = "track"
)

// Next returns the mode that follows m in the off -> context -> track cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatContext
	case RepeatContext:
		return RepeatTrack
	default:
		return RepeatOff
	}
}

// Device describes the output the backend is playing on.
type Device struct {
	Name       string `json:"name"`
	DeviceType string `json:"device_type"`
	Volume     *int   `json:"volume"`
}

// PlayContext is the playlist/album/artist the track is played from.
type PlayContext struct {
	ContextType string `json:"context_type"`
	URI         string `json:"uri"`
}

// NowPlaying is one poll's view of the current track. A new poll produces a new
// value; published values are never modified.
type NowPlaying struct {
	Artist      string       `json:"artist"`
	Track       string       `json:"track"`
	Album       string       `json:"album"`
	AlbumArt    *string      `json:"album_art"`
	Popularity  int          `json:"popularity"`
	Explicit    bool         `json:"explicit"`
	ExternalURL *string      `json:"external_url"`
	ProgressMs  int64        `json:"progress_ms"`
	Progress    string       `json:"progress"`
	DurationMs  int64        `json:"duration_ms"`
	Duration    string       `json:"duration"`
	IsPlaying   bool         `json:"is_playing"`
	Device      *Device      `json:"device"`
	Shuffle     bool         `json:"shuffle"`
	Repeat      RepeatMode   `json:"repeat"`
	Context     *PlayContext `json:"context"`
}

// Adapter is the playback-control/status surface the daemon drives.
// CurrentPlayback returns (nil, nil) when nothing is playing.
type Adapter interface {
	Name() string
	CurrentPlayback(ctx context.Context) (*NowPlaying, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	Seek(ctx context.Context, positionMs int64) error
	SetShuffle(ctx context.Context, on bool) error
	SetRepeat(ctx context.Context, mode RepeatMode) error
}

// FormatTime renders milliseconds as m:ss.
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// TrackKey identifies a song for lyrics caching. Nothing playing maps to "".
func TrackKey(np *NowPlaying) string {
	if np == nil {
		return ""
	}
	return np.Artist + "\x00" + np.Track
}

// WithProgress returns a copy of np positioned at progressMs.
func (np NowPlaying) WithProgress(progressMs int64) *NowPlaying {
	np.ProgressMs = progressMs
	np.Progress = FormatTime(progressMs)
	return &np
}

// String is the two-line plain rendering used by the dump output.
func (np *NowPlaying) String() string {
	icon := "⏸"
	if np.IsPlaying {
		icon = "▶"
	}
	return fmt.Sprintf("%s - %s\n%s / %s  %s", np.Artist, np.Track, np.Progress, np.Duration, icon)
}
