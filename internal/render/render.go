// Package render turns daemon snapshots into the CLI's output formats.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"lirik/internal/lyrics"
	"lirik/internal/player"
	"lirik/internal/state"
)

const (
	msgNoLyrics   = "no lyrics found"
	msgNotPlaying = "nothing playing right now"
)

// position applies the lyric offset; the result never goes below zero.
func position(np *player.NowPlaying, offsetMs int64) int64 {
	return max(0, np.ProgressMs+offsetMs)
}

// CurrentLine returns the index of the synced lyric line active for np.
func CurrentLine(l *lyrics.Lyrics, np *player.NowPlaying, offsetMs int64) (int, bool) {
	if l == nil || !l.Synced || np == nil {
		return 0, false
	}
	return lyrics.CurrentLineIndex(l.Lines, position(np, offsetMs))
}

type jsonOutput struct {
	*player.NowPlaying
	Lyric  *string        `json:"lyric"`
	Lyrics *lyrics.Lyrics `json:"lyrics"`
}

// JSON writes the estimated now-playing fields plus the active lyric and the
// full lyrics, or null when nothing is playing.
func JSON(w io.Writer, snap state.Snapshot, now time.Time, offsetMs int64) error {
	np := snap.Estimate(now)
	if np == nil {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	out := jsonOutput{NowPlaying: np, Lyrics: snap.Lyrics}
	if idx, ok := CurrentLine(snap.Lyrics, np, offsetMs); ok {
		out.Lyric = &snap.Lyrics.Lines[idx].Text
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// PlainOptions selects which lyric lines Plain prints.
type PlainOptions struct {
	FromCurrent bool
	Reverse     bool
	OffsetMs    int64
}

// Plain dumps the lyric text one line per row.
func Plain(w io.Writer, snap state.Snapshot, now time.Time, opts PlainOptions) error {
	l := snap.Lyrics
	if l == nil {
		_, err := fmt.Fprintln(w, msgNoLyrics)
		return err
	}

	start := 0
	if opts.FromCurrent && l.Synced {
		np := snap.Estimate(now)
		if np == nil {
			_, err := fmt.Fprintln(w, msgNotPlaying)
			return err
		}
		if idx, ok := CurrentLine(l, np, opts.OffsetMs); ok {
			start = idx
		}
	}

	lines := l.Lines[start:]
	for i := range lines {
		line := lines[i]
		if opts.Reverse {
			line = lines[len(lines)-1-i]
		}
		if _, err := fmt.Fprintln(w, line.Text); err != nil {
			return err
		}
	}
	return nil
}
