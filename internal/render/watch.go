package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"lirik/internal/player"
	"lirik/internal/state"
)

const (
	watchTick    = 100 * time.Millisecond
	watchRefresh = 2 * time.Second
)

// StateFetcher reads the daemon snapshot; *ipc.Client implements it.
type StateFetcher interface {
	FetchState(ctx context.Context) (state.Snapshot, error)
}

// Watcher prints a line per track change and per lyric line change.
type Watcher struct {
	JSON     bool
	OffsetMs int64

	track      string
	lastIdx    int
	hasIdx     bool
	wasPlaying bool
}

func NewWatcher(jsonOut bool, offsetMs int64) *Watcher {
	return &Watcher{JSON: jsonOut, OffsetMs: offsetMs, wasPlaying: true}
}

type trackEvent struct {
	Event  string `json:"event"`
	Artist string `json:"artist"`
	Track  string `json:"track"`
}

// Step returns the lines to print for snap as seen at now.
func (w *Watcher) Step(snap state.Snapshot, now time.Time) []string {
	np := snap.Estimate(now)
	if np == nil || !np.IsPlaying {
		var out []string
		if w.wasPlaying {
			// A blank line separates sessions in the stream.
			out = append(out, "")
		}
		w.wasPlaying = false
		w.track = ""
		w.hasIdx = false
		return out
	}
	w.wasPlaying = true

	var out []string
	if key := player.TrackKey(np); key != w.track {
		w.track = key
		w.hasIdx = false
		if w.JSON {
			data, _ := json.Marshal(trackEvent{Event: "track", Artist: np.Artist, Track: np.Track})
			out = append(out, string(data))
		} else {
			out = append(out, np.Artist+" - "+np.Track)
		}
	}

	if idx, ok := CurrentLine(snap.Lyrics, np, w.OffsetMs); ok && (!w.hasIdx || idx != w.lastIdx) {
		w.lastIdx, w.hasIdx = idx, true
		line := snap.Lyrics.Lines[idx]
		if w.JSON {
			data, _ := json.Marshal(line)
			out = append(out, string(data))
		} else {
			out = append(out, line.Text)
		}
	}
	return out
}

// Run polls f every two seconds and prints as the estimate advances, until
// ctx is done. A failed refresh keeps the last snapshot.
func (w *Watcher) Run(ctx context.Context, out io.Writer, f StateFetcher) error {
	snap, err := f.FetchState(ctx)
	if err != nil {
		return err
	}
	fetched := time.Now()

	ticker := time.NewTicker(watchTick)
	defer ticker.Stop()
	for {
		if time.Since(fetched) > watchRefresh {
			if s, err := f.FetchState(ctx); err == nil {
				snap = s
			} else {
				log.Debug().Err(err).Msg("Watch refresh failed")
			}
			fetched = time.Now()
		}
		for _, line := range w.Step(snap, time.Now()) {
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
