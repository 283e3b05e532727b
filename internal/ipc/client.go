package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"lirik/internal/state"
)

const clientTimeout = 5 * time.Second

// Connector opens a connection to the daemon. lifecycle.Manager implements it
// by spawning the daemon on demand; Dialer only dials.
type Connector interface {
	Connect(ctx context.Context) (net.Conn, error)
}

// Dialer connects to an already running daemon.
type Dialer struct {
	SocketPath string
}

func (d Dialer) Connect(ctx context.Context) (net.Conn, error) {
	var nd net.Dialer
	return nd.DialContext(ctx, "unix", d.SocketPath)
}

// CommandError is the error message returned by the daemon for a command.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

// Client is the frontend side of the protocol.
type Client struct {
	conn Connector
}

func NewClient(c Connector) *Client {
	return &Client{conn: c}
}

func (c *Client) roundTrip(ctx context.Context, request []byte) ([]byte, error) {
	conn, err := c.conn.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline := time.Now().Add(clientTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write(append(request, '\n')); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return line, nil
}

// FetchState reads the daemon's current snapshot. It sends an empty line so the
// daemon answers without waiting out its read window.
func (c *Client) FetchState(ctx context.Context) (state.Snapshot, error) {
	var snap state.Snapshot
	line, err := c.roundTrip(ctx, nil)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(line, &snap); err != nil {
		return snap, fmt.Errorf("decode state: %w", err)
	}
	return snap, nil
}

// Send executes a command. A daemon-side failure is returned as *CommandError.
func (c *Client) Send(ctx context.Context, name string, arg *string) error {
	req, err := json.Marshal(Command{Cmd: name, Arg: arg})
	if err != nil {
		return err
	}
	line, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if resp.Error != "" {
		return &CommandError{Message: resp.Error}
	}
	if !resp.OK {
		return errors.New("daemon returned neither ok nor error")
	}
	return nil
}
