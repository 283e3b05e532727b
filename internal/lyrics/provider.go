package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lirik/pkg/ai"
	"lirik/pkg/music"
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "lyrics").Logger()
	return &l
}

const defaultTimeout = 10 * time.Second

// Options wires a Provider. Only Source is required.
type Options struct {
	Source music.MusicAPI
	// Caches are consulted in order; a hit backfills the earlier ones.
	Caches []Cache
	// Normalizer, when set, cleans up titles like "Song (Remastered 2011) - Live"
	// and the lookup is retried once with its answer.
	Normalizer ai.AiInterface
	Timeout    time.Duration
}

// Provider fetches lyrics for the daemon. It never returns an error: any
// failure means no lyrics for this track.
type Provider struct {
	source     music.MusicAPI
	caches     []Cache
	normalizer ai.AiInterface
	timeout    time.Duration
}

func NewProvider(opts Options) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		source:     opts.Source,
		caches:     opts.Caches,
		normalizer: opts.Normalizer,
		timeout:    timeout,
	}
}

// Fetch returns lyrics for the track or nil. durationMs is sent to the sources
// as whole seconds.
func (p *Provider) Fetch(ctx context.Context, artist, track string, durationMs int64) *Lyrics {
	if artist == "" && track == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	key := CacheKey(artist, track)
	if l := p.fromCache(ctx, key); l != nil {
		logger().Debug().Str("key", key).Msg("Cache hit")
		return l
	}

	q := music.Query{Title: track, Artist: artist, Duration: int(durationMs / 1000)}
	l := p.lookup(ctx, q)
	if l == nil && p.normalizer != nil {
		if nq, ok := p.normalize(ctx, q); ok {
			logger().Info().Str("title", nq.Title).Str("artist", nq.Artist).Msg("Retrying with normalized title")
			l = p.lookup(ctx, nq)
		}
	}
	if l == nil {
		return nil
	}

	for _, c := range p.caches {
		c.Put(ctx, key, l)
	}
	return l
}

func (p *Provider) fromCache(ctx context.Context, key string) *Lyrics {
	for i, c := range p.caches {
		l, ok := c.Get(ctx, key)
		if !ok {
			continue
		}
		for _, earlier := range p.caches[:i] {
			earlier.Put(ctx, key, l)
		}
		return l
	}
	return nil
}

func (p *Provider) lookup(ctx context.Context, q music.Query) *Lyrics {
	if p.source == nil {
		return nil
	}
	res, err := p.source.FetchLyrics(ctx, q)
	if err != nil {
		logger().Info().Err(err).Str("title", q.Title).Str("artist", q.Artist).Msg("No lyrics")
		return nil
	}
	return FromResult(res)
}

type songInfo struct {
	IsSong bool   `json:"is_song"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

func formatQuerySong(q music.Query) string {
	return fmt.Sprintf(`Extract the song from this media title and answer with JSON only, exactly in the form {"is_song": true, "title": "song title", "artist": "performer"}. Drop decorations such as "Remastered", "Live", "feat." or "Official Video". If it is not a song, answer {"is_song": false}. Do not use markdown. Artist: %q. Title: %q.`, q.Artist, q.Title)
}

func (p *Provider) normalize(ctx context.Context, q music.Query) (music.Query, bool) {
	raw, err := p.normalizer.HandleText(ctx, formatQuerySong(q))
	if err != nil {
		logger().Warn().Err(err).Str("model", p.normalizer.Name()).Msg("Title normalization failed")
		return q, false
	}
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.Trim(raw, "`\n ")

	var info songInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		logger().Warn().Err(err).Str("response", raw).Msg("Failed to parse normalization response")
		return q, false
	}
	if !info.IsSong || info.Title == "" {
		return q, false
	}
	nq := music.Query{Title: info.Title, Artist: info.Artist, Duration: q.Duration}
	if nq.Artist == "" {
		nq.Artist = q.Artist
	}
	if nq.Title == q.Title && nq.Artist == q.Artist {
		return q, false
	}
	return nq, true
}
