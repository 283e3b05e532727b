// Package lifecycle starts the daemon on demand, stops it, and guards its
// single instance through the PID file.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	ConnectAttempts = 20
	ConnectInterval = 100 * time.Millisecond

	stopPolls        = 20
	stopPollInterval = 50 * time.Millisecond
	killWait         = 100 * time.Millisecond
)

var (
	// ErrDaemonUnreachable means the daemon could not be reached even after
	// spawning it and waiting out the retry budget.
	ErrDaemonUnreachable = errors.New("daemon unreachable")
	// ErrNotRunning is returned by Stop when there is no live daemon.
	ErrNotRunning = errors.New("daemon not running")
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "lifecycle").Logger()
	return &l
}

// Options describes where the daemon's markers live and how to start it.
type Options struct {
	SocketPath string
	PIDPath    string
	// Executable defaults to the running binary.
	Executable string
	// Args default to ["daemon"].
	Args []string
}

type Manager struct {
	opts Options

	spawn           func() error
	connectAttempts int
	connectInterval time.Duration
	stopPolls       int
	stopInterval    time.Duration
	killWait        time.Duration
}

func New(opts Options) *Manager {
	if len(opts.Args) == 0 {
		opts.Args = []string{"daemon"}
	}
	m := &Manager{
		opts:            opts,
		connectAttempts: ConnectAttempts,
		connectInterval: ConnectInterval,
		stopPolls:       stopPolls,
		stopInterval:    stopPollInterval,
		killWait:        killWait,
	}
	m.spawn = m.spawnDaemon
	return m
}

func (m *Manager) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", m.opts.SocketPath)
}

// Connect dials the daemon, spawning it first when nobody is listening.
func (m *Manager) Connect(ctx context.Context) (net.Conn, error) {
	conn, err := m.dial(ctx)
	if err == nil {
		return conn, nil
	}
	logger().Debug().Err(err).Msg("Daemon not reachable, spawning")

	if err := m.spawn(); err != nil {
		return nil, fmt.Errorf("%w: spawn: %v", ErrDaemonUnreachable, err)
	}

	for i := 0; i < m.connectAttempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.connectInterval):
		}
		if conn, err = m.dial(ctx); err == nil {
			logger().Debug().Int("attempt", i+1).Msg("Connected to spawned daemon")
			return conn, nil
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrDaemonUnreachable, m.connectAttempts, err)
}

// spawnDaemon starts the daemon in its own session with its standard streams
// on /dev/null, and does not wait for it.
func (m *Manager) spawnDaemon() error {
	exe := m.opts.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
	}

	cmd := exec.Command(exe, m.opts.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	logger().Info().Int("pid", cmd.Process.Pid).Str("exe", exe).Msg("Spawned daemon")
	return cmd.Process.Release()
}
