package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"lirik/internal/lyrics"
	"lirik/internal/player"
	"lirik/internal/state"
)

type fakeClient struct {
	snap  state.Snapshot
	sent  []string
	fail  error
	fetch int
}

func (c *fakeClient) FetchState(context.Context) (state.Snapshot, error) {
	c.fetch++
	return c.snap, nil
}

func (c *fakeClient) Send(_ context.Context, name string, arg *string) error {
	call := name
	if arg != nil {
		call += " " + *arg
	}
	c.sent = append(c.sent, call)
	return c.fail
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testModel(c *fakeClient) Model {
	m := New(Options{Client: c})
	m.now = func() time.Time { return t0 }
	return m
}

func playing() state.Snapshot {
	vol := 50
	return state.Snapshot{
		NowPlaying: &player.NowPlaying{
			Artist: "Artist", Track: "Song",
			ProgressMs: 6000, Progress: "0:06", DurationMs: 60000, Duration: "1:00",
			IsPlaying: false, Device: &player.Device{Name: "desk", Volume: &vol},
		},
		FetchedAt: t0,
		Lyrics: &lyrics.Lyrics{Synced: true, Lines: []lyrics.Line{
			{TimeMs: 0, Text: "first line"},
			{TimeMs: 5000, Text: "second line"},
			{TimeMs: 9000, Text: "third line"},
		}},
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestKeysSendCommands(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{" ", "toggle"},
		{"n", "next"},
		{"p", "prev"},
		{"s", "shuffle"},
		{"r", "repeat"},
		{"+", "volume 55"},
		{"-", "volume 45"},
		{"right", "seek 11000"},
		{"left", "seek 1000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			c := &fakeClient{}
			m, _ := update(t, testModel(c), snapshotMsg{snap: playing()})
			_, cmd := update(t, m, keyPress(tt.key))
			if cmd == nil {
				t.Fatal("no command returned")
			}
			msg := cmd()
			if res, ok := msg.(commandMsg); !ok || res.err != nil {
				t.Fatalf("msg = %#v", msg)
			}
			if len(c.sent) != 1 || c.sent[0] != tt.want {
				t.Errorf("sent = %v, want %q", c.sent, tt.want)
			}
		})
	}
}

func TestCommandErrorShownInFooter(t *testing.T) {
	c := &fakeClient{fail: errors.New("volume: 150 out of range 0-100")}
	m := testModel(c)
	m, _ = update(t, m, commandMsg{name: "volume", err: c.fail})
	if !strings.Contains(m.View(), "out of range") {
		t.Errorf("footer does not show the error:\n%s", m.View())
	}
}

func TestOffsetKeysMoveActiveLine(t *testing.T) {
	m, _ := update(t, testModel(&fakeClient{}), snapshotMsg{snap: playing()})
	if !strings.Contains(m.View(), "second line") {
		t.Fatal("lyrics not rendered")
	}

	for i := 0; i < 30; i++ {
		m, _ = update(t, m, keyPress("]"))
	}
	if m.offsetMs != 3000 {
		t.Fatalf("offset = %d", m.offsetMs)
	}
	idx := activeLine(m)
	if idx != 2 {
		t.Errorf("active line with +3s = %d, want 2", idx)
	}

	m, _ = update(t, m, keyPress("0"))
	if m.offsetMs != 0 || activeLine(m) != 1 {
		t.Errorf("after reset offset = %d, line = %d", m.offsetMs, activeLine(m))
	}
}

func activeLine(m Model) int {
	np := m.snapshot.Estimate(m.now())
	idx, _ := lyrics.CurrentLineIndex(m.snapshot.Lyrics.Lines, max(0, np.ProgressMs+m.offsetMs))
	return idx
}

func TestViewStates(t *testing.T) {
	m := testModel(&fakeClient{})
	if v := m.View(); !strings.Contains(v, "nothing playing") || !strings.Contains(v, "no lyrics found") {
		t.Errorf("empty view:\n%s", v)
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 12})
	m, _ = update(t, m, snapshotMsg{snap: playing()})
	v := m.View()
	for _, want := range []string{"Artist", "Song", "0:06", "1:00", "first line", "third line"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
	if lines := strings.Count(v, "\n") + 1; lines != 12 {
		t.Errorf("view has %d lines, want window height 12", lines)
	}
}

func TestTickRefetches(t *testing.T) {
	c := &fakeClient{snap: playing()}
	m := testModel(c)

	// lastFetch is zero, so the first tick fetches.
	m, cmd := update(t, m, tickMsg(t0))
	if !m.fetching || cmd == nil {
		t.Fatal("first tick did not start a fetch")
	}
	m, _ = update(t, m, snapshotMsg{snap: c.snap})
	if m.fetching || m.snapshot.NowPlaying == nil {
		t.Fatal("snapshot not applied")
	}

	// Within the refresh interval only the frame tick is scheduled.
	m, _ = update(t, m, tickMsg(t0))
	if m.fetching {
		t.Error("refetched before the refresh interval")
	}
}
