// Package web mirrors the daemon's state over HTTP and a websocket.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lirik/internal/ipc"
	"lirik/internal/state"
)

const (
	DefaultBind     = "127.0.0.1"
	shutdownTimeout = 5 * time.Second
	wsWriteTimeout  = 5 * time.Second
	maxCommandBytes = 4 << 10
)

//go:embed index.html
var indexPage []byte

func logger() *zerolog.Logger {
	l := log.With().Str("component", "web").Logger()
	return &l
}

// Backend is the daemon side the mirror talks to.
type Backend interface {
	Snapshot() state.Snapshot
	Execute(ctx context.Context, name string, arg *string) error
	Wake()
}

// Subscriber hands out snapshot feeds; *state.Store implements it.
type Subscriber interface {
	Subscribe() (<-chan state.Snapshot, func())
}

type Server struct {
	backend Backend
	subs    Subscriber
	http    *http.Server
}

// NewServer binds to bind:port once Serve is called.
func NewServer(bind string, port int, backend Backend, subs Subscriber) *Server {
	if bind == "" {
		bind = DefaultBind
	}
	s := &Server{backend: backend, subs: subs}
	s.http = &http.Server{
		Addr:              net.JoinHostPort(bind, fmt.Sprint(port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/cmd", s.handleCommand)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	return withRequestID(mux)
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("web listen on %s: %w", s.http.Addr, err)
	}
	s.http.BaseContext = func(net.Listener) context.Context { return ctx }
	logger().Info().Str("addr", "http://"+ln.Addr().String()).Msg("Web mirror listening")

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			logger().Warn().Err(err).Msg("Web mirror shutdown")
		}
		return nil
	}
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		logger().Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Debug().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Snapshot())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd ipc.Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes)).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, ipc.Response{Error: "bad json: " + err.Error()})
		return
	}

	var resp ipc.Response
	if err := s.backend.Execute(r.Context(), cmd.Cmd, cmd.Arg); err != nil {
		resp.Error = err.Error()
	} else {
		resp.OK = true
	}
	s.backend.Wake()
	writeJSON(w, http.StatusOK, resp)
}

// handleWebSocket sends the current snapshot, then every published one,
// until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger().Debug().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.CloseNow()

	updates, cancel := s.subs.Subscribe()
	defer cancel()

	// The client never sends anything; CloseRead handles pings and closes.
	ctx := conn.CloseRead(r.Context())

	if err := s.push(ctx, conn, s.backend.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case snap := <-updates:
			if err := s.push(ctx, conn, snap); err != nil {
				logger().Debug().Err(err).Msg("Websocket write failed")
				return
			}
		}
	}
}

func (s *Server) push(ctx context.Context, conn *websocket.Conn, snap state.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, snap)
}
