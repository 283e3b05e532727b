package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// StopResult reports what Stop did.
type StopResult struct {
	PID    int
	Forced bool
}

// alive reports whether pid exists. EPERM still means it exists.
func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Stop sends SIGTERM to the daemon named in the PID file, waits for it to
// exit and falls back to SIGKILL. Both marker files are removed whatever
// happens.
func (m *Manager) Stop() (StopResult, error) {
	defer m.removeMarkers()

	pid, err := ReadPID(m.opts.PIDPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StopResult{}, ErrNotRunning
		}
		return StopResult{}, err
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to stop current process (pid %d)", pid)
	}

	result := StopResult{PID: pid}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return result, ErrNotRunning
		}
		return result, fmt.Errorf("signal daemon %d: %w", pid, err)
	}

	for i := 0; i < m.stopPolls; i++ {
		time.Sleep(m.stopInterval)
		if !alive(pid) {
			logger().Info().Int("pid", pid).Msg("Daemon stopped")
			return result, nil
		}
	}

	if alive(pid) {
		logger().Warn().Int("pid", pid).Msg("Daemon ignored SIGTERM, killing")
		if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return result, fmt.Errorf("kill daemon %d: %w", pid, err)
		}
		result.Forced = true
		time.Sleep(m.killWait)
	}
	return result, nil
}

// Status returns the daemon's PID and whether that process is alive.
func (m *Manager) Status() (int, bool) {
	pid, err := ReadPID(m.opts.PIDPath)
	if err != nil {
		return 0, false
	}
	return pid, alive(pid)
}

func (m *Manager) removeMarkers() {
	for _, path := range []string{m.opts.SocketPath, m.opts.PIDPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger().Warn().Err(err).Str("path", path).Msg("Failed to remove marker")
		}
	}
}
