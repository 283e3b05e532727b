package music

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lirik/pkg/lrclib"
	"lirik/pkg/netease"
)

// Options configures the sources built by CreateProvider.
type Options struct {
	LRCLibURL  string
	NetEaseURL string
	UserAgent  string
	Timeout    time.Duration
}

type lrclibSource struct{ c *lrclib.Client }

func (s lrclibSource) GetProviderName() string { return s.c.GetProviderName() }

func (s lrclibSource) FetchLyrics(ctx context.Context, q Query) (*Result, error) {
	rec, err := s.c.Lookup(ctx, q.Title, q.Artist, q.Duration)
	if errors.Is(err, lrclib.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Result{Synced: rec.SyncedLyrics, Plain: rec.PlainLyrics, Provider: s.GetProviderName()}, nil
}

type neteaseSource struct{ c *netease.Client }

func (s neteaseSource) GetProviderName() string { return s.c.GetProviderName() }

func (s neteaseSource) FetchLyrics(ctx context.Context, q Query) (*Result, error) {
	songID, err := s.c.SearchSong(ctx, q.Title, q.Artist)
	if errors.Is(err, netease.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	lrc, err := s.c.GetLyrics(ctx, songID)
	if err != nil {
		return nil, err
	}
	return &Result{Synced: lrc, Provider: s.GetProviderName()}, nil
}

// CreateProvider 创建歌词来源客户端
func CreateProvider(provider Provider, opts Options) (MusicAPI, error) {
	httpClient := &http.Client{Timeout: opts.Timeout}
	switch provider {
	case ProviderLRCLib:
		logger().Debug().Str("base_url", opts.LRCLibURL).Msg("Creating LRCLib client")
		return lrclibSource{lrclib.NewClient(httpClient, opts.LRCLibURL, opts.UserAgent)}, nil
	case ProviderNetEase:
		logger().Debug().Msg("Creating NetEase music client")
		return neteaseSource{netease.NewClient(httpClient, opts.NetEaseURL)}, nil
	default:
		return nil, fmt.Errorf("unknown music provider: %s", provider)
	}
}

// CreateManager builds a Manager from provider names in priority order.
// Unknown names are skipped with a warning.
func CreateManager(names []string, opts Options) (*Manager, error) {
	var providers []MusicAPI
	for _, name := range names {
		providerType, err := GetProviderByName(name)
		if err != nil {
			logger().Warn().Err(err).Msg("Skipping lyrics provider")
			continue
		}
		provider, err := CreateProvider(providerType, opts)
		if err != nil {
			logger().Warn().Err(err).Str("provider", name).Msg("Failed to create provider")
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no lyrics providers available")
	}

	return NewManager(providers), nil
}

// GetAvailableProviders 获取所有可用的提供商
func GetAvailableProviders() []Provider {
	return []Provider{ProviderLRCLib, ProviderNetEase}
}

// GetProviderByName 根据名称获取提供商
func GetProviderByName(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lrclib":
		return ProviderLRCLib, nil
	case "netease", "网易云", "163":
		return ProviderNetEase, nil
	default:
		return "", fmt.Errorf("unknown provider name: %s", name)
	}
}
