package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"lirik/internal/state"
)

// DaemonStatus is what `lirik status` knows about the daemon process.
type DaemonStatus struct {
	Running    bool
	PID        int
	SocketPath string
	Backend    string
	// Snapshot is nil when the daemon could not be queried.
	Snapshot *state.Snapshot
}

// ShouldColorize reports whether w is a terminal.
func ShouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func lyricsSummary(snap *state.Snapshot) string {
	switch {
	case snap.Lyrics == nil:
		return "none"
	case snap.Lyrics.Synced:
		return fmt.Sprintf("synced, %d lines", len(snap.Lyrics.Lines))
	default:
		return fmt.Sprintf("plain, %d lines", len(snap.Lyrics.Lines))
	}
}

// Status renders a two-column table of daemon and playback state.
func Status(w io.Writer, st DaemonStatus, now time.Time) error {
	colorize := ShouldColorize(w)
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})

	daemon := "stopped"
	if st.Running {
		daemon = "running (pid " + strconv.Itoa(st.PID) + ")"
	}
	if colorize {
		if st.Running {
			daemon = text.FgGreen.Sprint(daemon)
		} else {
			daemon = text.FgRed.Sprint(daemon)
		}
	}
	tw.AppendRow(table.Row{"Daemon", daemon})
	tw.AppendRow(table.Row{"Socket", st.SocketPath})
	if st.Backend != "" {
		tw.AppendRow(table.Row{"Player", st.Backend})
	}

	if st.Snapshot != nil {
		np := st.Snapshot.Estimate(now)
		if np == nil {
			tw.AppendRow(table.Row{"Track", msgNotPlaying})
		} else {
			playing := "paused"
			if np.IsPlaying {
				playing = "playing"
			}
			tw.AppendSeparator()
			tw.AppendRow(table.Row{"Track", np.Artist + " - " + np.Track})
			if np.Album != "" {
				tw.AppendRow(table.Row{"Album", np.Album})
			}
			tw.AppendRow(table.Row{"Progress", fmt.Sprintf("%s / %s (%s)", np.Progress, np.Duration, playing)})
			if np.Device != nil {
				dev := np.Device.Name
				if np.Device.Volume != nil {
					dev += fmt.Sprintf(" (volume %d%%)", *np.Device.Volume)
				}
				tw.AppendRow(table.Row{"Device", dev})
			}
			tw.AppendRow(table.Row{"Shuffle", strconv.FormatBool(np.Shuffle)})
			tw.AppendRow(table.Row{"Repeat", string(np.Repeat)})
		}
		tw.AppendRow(table.Row{"Lyrics", lyricsSummary(st.Snapshot)})
		if !st.Snapshot.FetchedAt.IsZero() {
			tw.AppendRow(table.Row{"Last poll", now.Sub(st.Snapshot.FetchedAt).Truncate(time.Second).String() + " ago"})
		}
	}

	tw.Render()
	return nil
}
