package statusbar

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"lirik/internal/player"
	"lirik/internal/state"
)

type sent struct {
	pid int
	sig unix.Signal
}

func TestNotifierSignalsOnChange(t *testing.T) {
	n := New("i3blocks", 11)
	lookups := 0
	n.findPID = func(context.Context, string) (int, error) {
		lookups++
		return 4242, nil
	}
	var got []sent
	n.kill = func(pid int, sig unix.Signal) error {
		got = append(got, sent{pid, sig})
		return nil
	}

	playing := &player.NowPlaying{Artist: "A", Track: "T", IsPlaying: true}
	paused := &player.NowPlaying{Artist: "A", Track: "T", IsPlaying: false}
	progressed := &player.NowPlaying{Artist: "A", Track: "T", IsPlaying: false, ProgressMs: 9000}
	other := &player.NowPlaying{Artist: "B", Track: "T", IsPlaying: false}

	updates := make(chan state.Snapshot, 8)
	for _, np := range []*player.NowPlaying{nil, playing, playing, paused, progressed, other, nil} {
		updates <- state.Snapshot{NowPlaying: np}
	}
	close(updates)

	if err := n.Run(context.Background(), updates); err != nil {
		t.Fatal(err)
	}

	// playing, paused, other, nil: progress alone and repeats are ignored.
	if len(got) != 4 {
		t.Fatalf("signals = %v, want 4", got)
	}
	for _, s := range got {
		if s.pid != 4242 || s.sig != unix.Signal(45) {
			t.Errorf("signal = %+v", s)
		}
	}
	if lookups != 1 {
		t.Errorf("pid lookups = %d, want cached after the first", lookups)
	}
}

func TestNotifierRefreshesDeadPID(t *testing.T) {
	n := New("waybar", 8)
	pids := []int{100, 200}
	n.findPID = func(context.Context, string) (int, error) {
		pid := pids[0]
		pids = pids[1:]
		return pid, nil
	}
	var got []int
	n.kill = func(pid int, _ unix.Signal) error {
		if pid == 100 {
			return unix.ESRCH
		}
		got = append(got, pid)
		return nil
	}

	if err := n.notify(context.Background()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(got) != 1 || got[0] != 200 {
		t.Errorf("signalled %v, want [200]", got)
	}
}

func TestNotifierProcessMissing(t *testing.T) {
	n := New("i3blocks", 11)
	n.findPID = func(context.Context, string) (int, error) { return -1, errors.New("not found") }
	n.kill = func(int, unix.Signal) error {
		t.Error("kill called without a pid")
		return nil
	}
	if err := n.notify(context.Background()); err == nil {
		t.Error("want error when the bar is not running")
	}
}
