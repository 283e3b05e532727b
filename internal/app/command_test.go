package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lirik/internal/logging"
	"lirik/internal/player"
	"lirik/internal/state"
)

func strp(s string) *string { return &s }

func newCommandApp(np *player.NowPlaying) (*App, *fakePlayer) {
	fp := &fakePlayer{}
	store := state.NewStore()
	store.Publish(np, nil)
	return New(fp, &fakeFetcher{}, store, time.Second), fp
}

func TestExecute(t *testing.T) {
	paused := song("A", "T")
	paused.IsPlaying = false
	shuffled := song("A", "T")
	shuffled.Shuffle = true
	repeating := song("A", "T")
	repeating.Repeat = player.RepeatContext

	tests := []struct {
		name    string
		np      *player.NowPlaying
		cmd     string
		arg     *string
		call    string
		wantErr string
		check   func(t *testing.T, fp *fakePlayer)
	}{
		{name: "pause", np: song("A", "T"), cmd: "pause", call: "pause"},
		{name: "play", cmd: "play", call: "resume"},
		{name: "toggle playing", np: song("A", "T"), cmd: "toggle", call: "pause"},
		{name: "toggle paused", np: paused, cmd: "toggle", call: "resume"},
		{name: "toggle nothing", cmd: "toggle", call: "resume"},
		{name: "next", cmd: "next", call: "next"},
		{name: "prev", cmd: "prev", call: "previous"},
		{name: "volume", cmd: "volume", arg: strp("50"), call: "volume", check: func(t *testing.T, fp *fakePlayer) {
			if fp.volume != 50 {
				t.Errorf("volume = %d", fp.volume)
			}
		}},
		{name: "volume bounds", cmd: "volume", arg: strp("100"), call: "volume"},
		{name: "volume too high", cmd: "volume", arg: strp("150"), wantErr: "volume: 150 out of range 0-100"},
		{name: "volume negative", cmd: "volume", arg: strp("-1"), wantErr: "volume: -1 out of range 0-100"},
		{name: "volume not a number", cmd: "volume", arg: strp("loud"), wantErr: `volume: invalid number "loud"`},
		{name: "volume missing", cmd: "volume", wantErr: "volume: missing argument"},
		{name: "seek", cmd: "seek", arg: strp("90000"), call: "seek", check: func(t *testing.T, fp *fakePlayer) {
			if fp.seek != 90_000 {
				t.Errorf("seek = %d", fp.seek)
			}
		}},
		{name: "seek negative", cmd: "seek", arg: strp("-5"), wantErr: "seek: -5 must be at least 0"},
		{name: "shuffle on", np: song("A", "T"), cmd: "shuffle", call: "shuffle", check: func(t *testing.T, fp *fakePlayer) {
			if !*fp.shuffle {
				t.Error("expected shuffle on")
			}
		}},
		{name: "shuffle off", np: shuffled, cmd: "shuffle", call: "shuffle", check: func(t *testing.T, fp *fakePlayer) {
			if *fp.shuffle {
				t.Error("expected shuffle off")
			}
		}},
		{name: "shuffle nothing playing", cmd: "shuffle", call: "shuffle", check: func(t *testing.T, fp *fakePlayer) {
			if !*fp.shuffle {
				t.Error("expected shuffle on")
			}
		}},
		{name: "repeat cycles", np: repeating, cmd: "repeat", call: "repeat", check: func(t *testing.T, fp *fakePlayer) {
			if fp.repeat != player.RepeatTrack {
				t.Errorf("repeat = %q", fp.repeat)
			}
		}},
		{name: "repeat nothing playing", cmd: "repeat", call: "repeat", check: func(t *testing.T, fp *fakePlayer) {
			if fp.repeat != player.RepeatContext {
				t.Errorf("repeat = %q", fp.repeat)
			}
		}},
		{name: "unknown", cmd: "dance", wantErr: "unknown command: dance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, fp := newCommandApp(tt.np)
			err := a.Execute(context.Background(), tt.cmd, tt.arg)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				if len(fp.calls) != 0 {
					t.Errorf("player called on invalid command: %v", fp.calls)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if len(fp.calls) != 1 || fp.calls[0] != tt.call {
				t.Errorf("calls = %v, want [%s]", fp.calls, tt.call)
			}
			if tt.check != nil {
				tt.check(t, fp)
			}
		})
	}
}

func TestExecuteUnknownIsSentinel(t *testing.T) {
	a, _ := newCommandApp(nil)
	if err := a.Execute(context.Background(), "", nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("err = %v", err)
	}
}

func TestExecutePlayerError(t *testing.T) {
	a, fp := newCommandApp(nil)
	fp.err = errors.New("no active device")
	if err := a.Execute(context.Background(), "next", nil); err == nil || err.Error() != "no active device" {
		t.Errorf("err = %v", err)
	}
}

func TestLogsFollowSetup(t *testing.T) {
	saved, savedLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(savedLevel)
	})

	var buf bytes.Buffer
	if err := logging.Setup("info", &buf, true); err != nil {
		t.Fatal(err)
	}
	a, _ := newCommandApp(song("A", "T"))
	if err := a.Execute(context.Background(), "pause", nil); err != nil {
		t.Fatalf("pause: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"component":"app"`) || !strings.Contains(out, "Command executed") {
		t.Errorf("log written after Setup = %q", out)
	}
}
