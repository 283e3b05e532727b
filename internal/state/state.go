// Package state holds the daemon's cached view of playback.
package state

import (
	"encoding/json"
	"sync"
	"time"

	"lirik/internal/lyrics"
	"lirik/internal/player"
)

// Snapshot is one published poll result. It is never modified after Publish;
// readers get value copies that share the pointed-to NowPlaying and Lyrics.
type Snapshot struct {
	NowPlaying *player.NowPlaying
	FetchedAt  time.Time
	Lyrics     *lyrics.Lyrics
}

type wireSnapshot struct {
	NowPlaying  *player.NowPlaying `json:"now_playing"`
	FetchedAtMs int64              `json:"fetched_at_ms"`
	Lyrics      *lyrics.Lyrics     `json:"lyrics"`
}

// MarshalJSON writes the wire form. FetchedAt crosses process boundaries as
// unix milliseconds.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{NowPlaying: s.NowPlaying, Lyrics: s.Lyrics}
	if !s.FetchedAt.IsZero() {
		w.FetchedAtMs = s.FetchedAt.UnixMilli()
	}
	return json.Marshal(w)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Snapshot{NowPlaying: w.NowPlaying, Lyrics: w.Lyrics}
	if w.FetchedAtMs > 0 {
		s.FetchedAt = time.UnixMilli(w.FetchedAtMs)
	}
	return nil
}

// Estimate extrapolates the playback position to now. It returns nil when
// nothing is playing and the cached value unchanged when paused.
func (s Snapshot) Estimate(now time.Time) *player.NowPlaying {
	np := s.NowPlaying
	if np == nil || !np.IsPlaying {
		return np
	}
	elapsed := now.Sub(s.FetchedAt).Milliseconds()
	if elapsed < 0 || s.FetchedAt.IsZero() {
		elapsed = 0
	}
	// Never past duration_ms, so an unknown (0) duration pins progress at 0.
	progress := min(np.ProgressMs+elapsed, np.DurationMs)
	return np.WithProgress(max(0, progress))
}

// Store owns the current Snapshot. One writer publishes; any number of
// readers take copies.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}
}

func NewStore() *Store {
	return &Store{now: time.Now, subs: make(map[chan Snapshot]struct{})}
}

// Snapshot returns the most recently published snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Publish replaces the snapshot wholesale and notifies subscribers.
func (s *Store) Publish(np *player.NowPlaying, l *lyrics.Lyrics) Snapshot {
	snap := Snapshot{NowPlaying: np, FetchedAt: s.now(), Lyrics: l}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.subMu.Lock()
	for ch := range s.subs {
		// Drop the stale pending value so slow subscribers see the latest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	s.subMu.Unlock()
	return snap
}

// Subscribe returns a channel that receives every published snapshot. A slow
// receiver only ever misses intermediate values. Call cancel to unsubscribe.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
		})
	}
}
