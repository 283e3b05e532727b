package state

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"lirik/internal/lyrics"
	"lirik/internal/player"
)

func playing(progress, duration int64, isPlaying bool) *player.NowPlaying {
	return &player.NowPlaying{
		Artist:     "A",
		Track:      "T",
		ProgressMs: progress,
		Progress:   player.FormatTime(progress),
		DurationMs: duration,
		Duration:   player.FormatTime(duration),
		IsPlaying:  isPlaying,
		Repeat:     player.RepeatOff,
	}
}

func TestEstimate(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name  string
		snap  Snapshot
		now   time.Time
		want  int64
		isNil bool
	}{
		{"nothing playing", Snapshot{FetchedAt: base}, base.Add(time.Second), 0, true},
		{"advances while playing", Snapshot{NowPlaying: playing(10_000, 200_000, true), FetchedAt: base}, base.Add(2500 * time.Millisecond), 12_500, false},
		{"clamped to duration", Snapshot{NowPlaying: playing(199_000, 200_000, true), FetchedAt: base}, base.Add(5 * time.Second), 200_000, false},
		{"unknown duration never exceeded", Snapshot{NowPlaying: playing(1_000, 0, true), FetchedAt: base}, base.Add(5 * time.Second), 0, false},
		{"paused unchanged", Snapshot{NowPlaying: playing(10_000, 200_000, false), FetchedAt: base}, base.Add(5 * time.Second), 10_000, false},
		{"clock went backwards", Snapshot{NowPlaying: playing(10_000, 200_000, true), FetchedAt: base}, base.Add(-time.Minute), 10_000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.snap.Estimate(tt.now)
			if tt.isNil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got.ProgressMs != tt.want {
				t.Errorf("progress = %d, want %d", got.ProgressMs, tt.want)
			}
			if got.Progress != player.FormatTime(tt.want) {
				t.Errorf("formatted progress = %q", got.Progress)
			}
		})
	}
}

func TestEstimateMonotonicAndBounded(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	snap := Snapshot{NowPlaying: playing(0, 3_000, true), FetchedAt: base}
	prev := int64(-1)
	for d := time.Duration(0); d < 5*time.Second; d += 37 * time.Millisecond {
		got := snap.Estimate(base.Add(d)).ProgressMs
		if got < prev || got > 3_000 {
			t.Fatalf("at %v: progress %d (prev %d)", d, got, prev)
		}
		prev = got
	}
	if snap.NowPlaying.ProgressMs != 0 {
		t.Error("Estimate mutated the snapshot")
	}
}

func TestSnapshotJSON(t *testing.T) {
	var empty Snapshot
	data, err := json.Marshal(empty)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"now_playing":null,"fetched_at_ms":0,"lyrics":null}` {
		t.Errorf("empty snapshot = %s", data)
	}

	at := time.UnixMilli(1_700_000_000_123)
	snap := Snapshot{
		NowPlaying: playing(1000, 2000, true),
		FetchedAt:  at,
		Lyrics:     &lyrics.Lyrics{Synced: true, Lines: []lyrics.Line{{TimeMs: 500, Text: "x"}}},
	}
	data, err = json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"fetched_at_ms":1700000000123`, `"progress":"0:01"`, `"time_ms":500`, `"synced":true`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("%s missing %s", data, want)
		}
	}

	var back Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.FetchedAt.Equal(at) || back.NowPlaying.Track != "T" || len(back.Lyrics.Lines) != 1 {
		t.Errorf("decoded %+v", back)
	}
}

func TestStorePublish(t *testing.T) {
	s := NewStore()
	now := time.Unix(100, 0)
	s.now = func() time.Time { return now }

	if got := s.Snapshot(); got.NowPlaying != nil || !got.FetchedAt.IsZero() {
		t.Fatalf("initial snapshot not empty: %+v", got)
	}

	ch, cancel := s.Subscribe()
	defer cancel()

	np := playing(1, 2, true)
	s.Publish(np, nil)
	if got := s.Snapshot(); got.NowPlaying != np || !got.FetchedAt.Equal(now) {
		t.Errorf("snapshot = %+v", got)
	}

	// A slow subscriber sees the latest value, not the first.
	now = now.Add(time.Second)
	s.Publish(nil, nil)
	got := <-ch
	if got.NowPlaying != nil || !got.FetchedAt.Equal(now) {
		t.Errorf("subscriber got %+v", got)
	}

	cancel()
	s.Publish(np, nil)
	select {
	case <-ch:
		t.Error("unsubscribed channel received a value")
	default:
	}
}

func TestStoreConcurrentReaders(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				snap := s.Snapshot()
				if snap.NowPlaying != nil && snap.NowPlaying.Track != "T" {
					t.Error("torn snapshot")
					return
				}
			}
		}()
	}
	for j := 0; j < 1000; j++ {
		s.Publish(playing(int64(j), 1000, true), nil)
	}
	wg.Wait()
}
