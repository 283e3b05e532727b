package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lirik/internal/lyrics"
	"lirik/internal/player"
	"lirik/internal/state"
)

type fakePlayer struct {
	mu    sync.Mutex
	np    *player.NowPlaying
	err   error
	polls int
	calls []string

	volume  int
	seek    int64
	shuffle *bool
	repeat  player.RepeatMode
}

func (f *fakePlayer) Name() string { return "fake" }

func (f *fakePlayer) CurrentPlayback(context.Context) (*player.NowPlaying, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.np, f.err
}

func (f *fakePlayer) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakePlayer) Pause(context.Context) error    { return f.record("pause") }
func (f *fakePlayer) Resume(context.Context) error   { return f.record("resume") }
func (f *fakePlayer) Next(context.Context) error     { return f.record("next") }
func (f *fakePlayer) Previous(context.Context) error { return f.record("previous") }
func (f *fakePlayer) SetVolume(_ context.Context, v int) error {
	f.volume = v
	return f.record("volume")
}
func (f *fakePlayer) Seek(_ context.Context, ms int64) error {
	f.seek = ms
	return f.record("seek")
}
func (f *fakePlayer) SetShuffle(_ context.Context, on bool) error {
	f.shuffle = &on
	return f.record("shuffle")
}
func (f *fakePlayer) SetRepeat(_ context.Context, m player.RepeatMode) error {
	f.repeat = m
	return f.record("repeat")
}

func (f *fakePlayer) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

type fakeFetcher struct {
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, artist, track string, _ int64) *lyrics.Lyrics {
	f.calls = append(f.calls, artist+"/"+track)
	return &lyrics.Lyrics{Synced: true, Lines: []lyrics.Line{{TimeMs: 0, Text: track}}}
}

func song(artist, track string) *player.NowPlaying {
	return &player.NowPlaying{Artist: artist, Track: track, DurationMs: 1000, IsPlaying: true, Repeat: player.RepeatOff}
}

func TestPollFetchesLyricsOnlyOnTrackChange(t *testing.T) {
	fp := &fakePlayer{}
	ff := &fakeFetcher{}
	a := New(fp, ff, state.NewStore(), time.Second)
	ctx := context.Background()

	steps := []struct {
		np      *player.NowPlaying
		fetches int
	}{
		{song("A", "One"), 1},
		{song("A", "One"), 1},
		{song("A", "One"), 1},
		{song("B", "One"), 2},
		{song("B", "Two"), 3},
		{nil, 3},
		{song("B", "Two"), 4},
	}
	for i, step := range steps {
		fp.np = step.np
		snap := a.poll(ctx)
		if len(ff.calls) != step.fetches {
			t.Fatalf("step %d: %d fetches, want %d (%v)", i, len(ff.calls), step.fetches, ff.calls)
		}
		if step.np == nil {
			if snap.NowPlaying != nil || snap.Lyrics != nil {
				t.Errorf("step %d: expected empty snapshot, got %+v", i, snap)
			}
			continue
		}
		if snap.Lyrics == nil || snap.Lyrics.Lines[0].Text != step.np.Track {
			t.Errorf("step %d: lyrics not carried for %s", i, step.np.Track)
		}
	}
}

func TestPollErrorPublishesNothingPlaying(t *testing.T) {
	fp := &fakePlayer{np: song("A", "One")}
	store := state.NewStore()
	a := New(fp, &fakeFetcher{}, store, time.Second)

	a.poll(context.Background())
	fp.np, fp.err = nil, errors.New("401 unauthorized")
	snap := a.poll(context.Background())
	if snap.NowPlaying != nil || snap.FetchedAt.IsZero() {
		t.Errorf("snapshot after failure = %+v", snap)
	}
	if got := store.Snapshot(); got.NowPlaying != nil {
		t.Error("store not updated after failed poll")
	}
}

func TestRunWakesEarly(t *testing.T) {
	fp := &fakePlayer{}
	a := New(fp, &fakeFetcher{}, state.NewStore(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	waitFor(t, func() bool { return fp.pollCount() >= 1 })
	a.Wake()
	a.Wake() // coalesced, never blocks
	waitFor(t, func() bool { return fp.pollCount() >= 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
