package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"lirik/pkg/fileutil"
	"lirik/pkg/musiccache"
)

// Cache stores fetched lyrics by CacheKey. Implementations log and swallow
// their own errors; a failing cache behaves like a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Lyrics, bool)
	Put(ctx context.Context, key string, l *Lyrics)
}

var folder = cases.Fold()

// CacheKey folds case and Unicode normalization so "Beyoncé" from one player
// and "BEYONCÉ" from another share an entry.
func CacheKey(artist, track string) string {
	normalize := func(s string) string {
		return folder.String(norm.NFC.String(strings.TrimSpace(s)))
	}
	return normalize(artist) + " - " + normalize(track)
}

func encode(l *Lyrics) ([]byte, error) { return json.Marshal(l) }

func decode(data []byte) (*Lyrics, error) {
	var l Lyrics
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// MemoryCache keeps lyrics for the lifetime of the daemon.
type MemoryCache struct {
	c *musiccache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: musiccache.New(ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*Lyrics, bool) {
	data, ok := m.c.GetCache(key)
	if !ok {
		return nil, false
	}
	l, err := decode(data)
	if err != nil {
		return nil, false
	}
	return l, true
}

func (m *MemoryCache) Put(_ context.Context, key string, l *Lyrics) {
	data, err := encode(l)
	if err != nil {
		return
	}
	m.c.AddCache(key, data)
}

var unsafeFilename = regexp.MustCompile(`[\\/:*?"<>|\x00]`)

func sanitizeFilename(name string) string {
	return unsafeFilename.ReplaceAllString(name, "-")
}

// FileCache stores one JSON file per track under dir.
type FileCache struct {
	dir string
	ttl time.Duration
}

func NewFileCache(dir string, ttl time.Duration) *FileCache {
	return &FileCache{dir: dir, ttl: ttl}
}

func (f *FileCache) path(key string) string {
	return filepath.Join(f.dir, sanitizeFilename(key)+".json")
}

func (f *FileCache) Get(_ context.Context, key string) (*Lyrics, bool) {
	p := f.path(key)
	info, err := os.Stat(p)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger().Warn().Err(err).Str("path", p).Msg("Cache file unreadable")
		}
		return nil, false
	}
	if f.ttl > 0 && time.Since(info.ModTime()) > f.ttl {
		return nil, false
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	l, err := decode(data)
	if err != nil {
		logger().Warn().Err(err).Str("path", p).Msg("Corrupt cache file ignored")
		return nil, false
	}
	return l, true
}

func (f *FileCache) Put(_ context.Context, key string, l *Lyrics) {
	data, err := encode(l)
	if err != nil {
		return
	}
	p := f.path(key)
	if err := fileutil.WriteFileAtomic(p, data, 0o644); err != nil {
		logger().Warn().Err(err).Str("path", p).Msg("Failed to write cache file")
	}
}

// RedisStore is the subset of *redis.Client the redis cache needs.
type RedisStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RedisCache shares lyrics between machines or across cache_dir wipes.
type RedisCache struct {
	store  RedisStore
	prefix string
	ttl    time.Duration
}

func NewRedisCache(store RedisStore, ttl time.Duration) *RedisCache {
	return &RedisCache{store: store, prefix: "lirik:lyrics:", ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*Lyrics, bool) {
	data, err := r.store.GetBytes(ctx, r.prefix+key)
	if err != nil {
		logger().Warn().Err(err).Msg("Redis get failed")
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	l, err := decode(data)
	if err != nil {
		return nil, false
	}
	return l, true
}

func (r *RedisCache) Put(ctx context.Context, key string, l *Lyrics) {
	data, err := encode(l)
	if err != nil {
		return
	}
	if err := r.store.SetWithExpiration(ctx, r.prefix+key, data, r.ttl); err != nil {
		logger().Warn().Err(err).Msg("Redis set failed")
	}
}
