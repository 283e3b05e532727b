// Package statusbar pokes a status bar (i3blocks, waybar, ...) with a
// real-time signal whenever the track or its playing flag changes, so the bar
// re-runs its lirik block.
package statusbar

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"lirik/internal/player"
	"lirik/internal/state"
)

// sigRTMin is SIGRTMIN as seen by programs linked against glibc; i3blocks
// and waybar count their signal numbers from it.
const sigRTMin = 34

func logger() *zerolog.Logger {
	l := log.With().Str("component", "statusbar").Logger()
	return &l
}

// Notifier signals the bar process on state changes.
type Notifier struct {
	process string
	signal  unix.Signal
	pid     int

	findPID func(ctx context.Context, process string) (int, error)
	kill    func(pid int, sig unix.Signal) error
}

// New targets the process whose command line matches process. signal is the
// bar's block signal number, so 11 sends SIGRTMIN+11.
func New(process string, signal int) *Notifier {
	return &Notifier{
		process: process,
		signal:  unix.Signal(sigRTMin + signal),
		pid:     -1,
		findPID: pgrep,
		kill:    unix.Kill,
	}
}

// pgrep returns the first PID whose command line matches process.
func pgrep(ctx context.Context, process string) (int, error) {
	out, err := exec.CommandContext(ctx, "pgrep", "-f", process).Output()
	if err != nil {
		return -1, fmt.Errorf("%s process not found", process)
	}
	lines := strings.Fields(string(out))
	if len(lines) == 0 {
		return -1, fmt.Errorf("%s process not found", process)
	}
	pid, err := strconv.Atoi(lines[0])
	if err != nil {
		return -1, fmt.Errorf("failed to parse PID: %w", err)
	}
	return pid, nil
}

func changeKey(np *player.NowPlaying) string {
	if np == nil {
		return ""
	}
	return player.TrackKey(np) + "\x00" + strconv.FormatBool(np.IsPlaying)
}

// Run signals the bar for every snapshot on updates that differs from the
// previous one in track or playing flag. It returns when ctx is done or
// updates is closed.
func (n *Notifier) Run(ctx context.Context, updates <-chan state.Snapshot) error {
	logger().Info().Str("process", n.process).Int("signal", int(n.signal)).Msg("Status bar notifier started")
	last := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			key := changeKey(snap.NowPlaying)
			if key == last {
				continue
			}
			last = key
			if err := n.notify(ctx); err != nil {
				logger().Debug().Err(err).Msg("Failed to signal status bar")
			}
		}
	}
}

// notify sends the signal, refreshing the cached PID when it is unknown or
// the old process is gone.
func (n *Notifier) notify(ctx context.Context) error {
	if n.pid <= 0 {
		if err := n.refreshPID(ctx); err != nil {
			return err
		}
	}
	err := n.kill(n.pid, n.signal)
	if errors.Is(err, unix.ESRCH) {
		if err := n.refreshPID(ctx); err != nil {
			return err
		}
		err = n.kill(n.pid, n.signal)
	}
	if err != nil {
		return fmt.Errorf("send signal %d to process %d: %w", n.signal, n.pid, err)
	}
	return nil
}

func (n *Notifier) refreshPID(ctx context.Context) error {
	pid, err := n.findPID(ctx, n.process)
	if err != nil {
		n.pid = -1
		return err
	}
	if pid != n.pid {
		logger().Debug().Int("old_pid", n.pid).Int("pid", pid).Msg("Status bar PID updated")
	}
	n.pid = pid
	return nil
}
