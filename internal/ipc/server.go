// Package ipc serves the daemon's state and accepts playback commands over a
// unix socket, one request per connection.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lirik/internal/state"
)

const (
	// ReadWindow is how long the server waits for a command line before
	// treating the connection as a state read.
	ReadWindow   = 100 * time.Millisecond
	writeTimeout = 2 * time.Second
	maxLineBytes = 64 << 10
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "ipc").Logger()
	return &l
}

// Handler is what the server needs from the daemon core.
type Handler interface {
	Snapshot() state.Snapshot
	Execute(ctx context.Context, name string, arg *string) error
	Wake()
}

type Server struct {
	socketPath string
	handler    Handler
	listener   net.Listener
	readWindow time.Duration

	clientConns     map[net.Conn]struct{}
	clientConnsLock sync.Mutex
	wg              sync.WaitGroup
}

func NewServer(socketPath string, h Handler) *Server {
	return &Server{
		socketPath:  socketPath,
		handler:     h,
		readWindow:  ReadWindow,
		clientConns: make(map[net.Conn]struct{}),
	}
}

// Start removes a stale socket file and binds a new one.
func (s *Server) Start() error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		logger().Warn().Err(err).Msg("Failed to restrict socket permissions")
	}
	s.listener = listener

	logger().Info().Str("socket_path", s.socketPath).Msg("IPC server listening")
	return nil
}

// Serve accepts connections until ctx is cancelled or the listener fails.
// Each connection is handled on its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("ipc server not started")
	}
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger().Warn().Err(err).Msg("Failed to accept IPC connection")
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.clientConnsLock.Lock()
	defer s.clientConnsLock.Unlock()
	if add {
		s.clientConns[conn] = struct{}{}
	} else {
		delete(s.clientConns, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	l := logger().With().Str("conn", uuid.NewString()[:8]).Logger()

	line, err := readRequest(conn, s.readWindow)
	if err != nil {
		l.Debug().Err(err).Msg("Read failed, serving state")
	}

	var reply []byte
	if line == "" {
		reply, err = json.Marshal(s.handler.Snapshot())
		if err != nil {
			l.Error().Err(err).Msg("Failed to encode snapshot")
			return
		}
		l.Debug().Msg("State read")
	} else {
		reply = s.command(ctx, l, line)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(append(reply, '\n')); err != nil {
		l.Debug().Err(err).Msg("Failed to write reply")
	}
}

// readRequest returns the first line the client sends within window, without
// its newline. Nothing sent, a timeout, or an empty line all yield "".
func readRequest(conn net.Conn, window time.Duration) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(window))
	defer conn.SetReadDeadline(time.Time{})

	r := bufio.NewReader(io.LimitReader(conn, maxLineBytes))
	line, err := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && !errors.Is(err, io.EOF) {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// A partial line that arrived before the deadline still counts.
			return line, nil
		}
		return line, err
	}
	return line, nil
}

func (s *Server) command(ctx context.Context, l zerolog.Logger, line string) []byte {
	var cmd Command
	var resp Response
	if err := json.Unmarshal([]byte(line), &cmd); err != nil {
		resp.Error = fmt.Sprintf("invalid command: %v", err)
		l.Warn().Err(err).Msg("Malformed command")
	} else if err := s.handler.Execute(ctx, cmd.Cmd, cmd.Arg); err != nil {
		resp.Error = err.Error()
	} else {
		resp.OK = true
	}
	// Any command request wakes the poll loop, even a malformed one.
	s.handler.Wake()

	out, _ := json.Marshal(resp)
	return out
}

// Close stops accepting, drops open connections and removes the socket file.
func (s *Server) Close() error {
	if s.listener != nil {
		s.listener.Close()
	}

	s.clientConnsLock.Lock()
	for conn := range s.clientConns {
		conn.Close()
	}
	s.clientConnsLock.Unlock()

	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	logger().Info().Str("socket_path", s.socketPath).Msg("IPC server closed")
	return nil
}
