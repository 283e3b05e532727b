package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"lirik/internal/ipc"
	"lirik/internal/player"
	"lirik/internal/state"
)

type fakeBackend struct {
	store *state.Store

	mu    sync.Mutex
	calls []string
	wakes int
}

func (b *fakeBackend) Snapshot() state.Snapshot { return b.store.Snapshot() }

func (b *fakeBackend) Execute(_ context.Context, name string, arg *string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	call := name
	if arg != nil {
		call += " " + *arg
	}
	b.calls = append(b.calls, call)
	if name == "dance" {
		return errors.New("unknown command: dance")
	}
	return nil
}

func (b *fakeBackend) Wake() {
	b.mu.Lock()
	b.wakes++
	b.mu.Unlock()
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeBackend) {
	t.Helper()
	b := &fakeBackend{store: state.NewStore()}
	srv := httptest.NewServer(NewServer("", 0, b, b.store).Handler())
	t.Cleanup(srv.Close)
	return srv, b
}

func TestState(t *testing.T) {
	srv, b := newTestServer(t)
	b.store.Publish(&player.NowPlaying{Artist: "A", Track: "T", IsPlaying: true}, nil)

	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Request-Id") == "" {
		t.Errorf("status = %d, request id = %q", resp.StatusCode, resp.Header.Get("X-Request-Id"))
	}
	var snap state.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.NowPlaying == nil || snap.NowPlaying.Track != "T" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestCommand(t *testing.T) {
	srv, b := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantOK     bool
		wantErr    string
	}{
		{"ok", `{"cmd":"volume","arg":40}`, http.StatusOK, true, ""},
		{"command error", `{"cmd":"dance"}`, http.StatusOK, false, "unknown command: dance"},
		{"bad json", `{"cmd":`, http.StatusBadRequest, false, "bad json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/cmd", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var got ipc.Response
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.OK != tt.wantOK || !strings.HasPrefix(got.Error, tt.wantErr) {
				t.Errorf("response = %+v", got)
			}
		})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.calls) != 2 || b.calls[0] != "volume 40" {
		t.Errorf("calls = %v", b.calls)
	}
	if b.wakes != 2 {
		t.Errorf("wakes = %d, want one per dispatched command", b.wakes)
	}
}

func TestMethodsAndIndex(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/cmd")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/cmd status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("index status = %d, type = %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestWebSocketPushesSnapshots(t *testing.T) {
	srv, b := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/api/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var first state.Snapshot
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.NowPlaying != nil {
		t.Errorf("initial = %+v, want nothing playing", first)
	}

	// The subscription exists once the initial frame arrived.
	b.store.Publish(&player.NowPlaying{Artist: "A", Track: "Pushed"}, nil)

	var next state.Snapshot
	if err := wsjson.Read(ctx, conn, &next); err != nil {
		t.Fatalf("read pushed: %v", err)
	}
	if next.NowPlaying == nil || next.NowPlaying.Track != "Pushed" {
		t.Errorf("pushed = %+v", next)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
