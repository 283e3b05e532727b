package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Provider 歌词来源类型
type Provider string

const (
	// ProviderLRCLib LRCLib歌词库
	ProviderLRCLib Provider = "lrclib"
	// ProviderNetEase 网易云音乐
	ProviderNetEase Provider = "netease"
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "music-manager").Logger()
	return &l
}

// Manager tries its sources in order and returns the first that has lyrics.
type Manager struct {
	providers []MusicAPI
	primary   MusicAPI
}

var _ MusicAPI = (*Manager)(nil)

// NewManager 创建新的歌词来源管理器
func NewManager(providers []MusicAPI) *Manager {
	if len(providers) == 0 {
		logger().Warn().Msg("No lyrics providers configured")
		return &Manager{}
	}

	primary := providers[0]
	logger().Info().
		Int("provider_count", len(providers)).
		Str("primary_provider", primary.GetProviderName()).
		Msg("Lyrics source manager initialized")

	return &Manager{
		providers: providers,
		primary:   primary,
	}
}

// FetchLyrics 按顺序尝试各来源，返回第一个有歌词的结果
func (m *Manager) FetchLyrics(ctx context.Context, q Query) (*Result, error) {
	if len(m.providers) == 0 {
		return nil, fmt.Errorf("no lyrics providers available")
	}

	lastErr := ErrNotFound
	for i, provider := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger().Debug().
			Str("title", q.Title).
			Str("artist", q.Artist).
			Int("duration", q.Duration).
			Str("provider", provider.GetProviderName()).
			Int("attempt", i+1).
			Int("total_providers", len(m.providers)).
			Msg("Trying to get lyrics")

		res, err := provider.FetchLyrics(ctx, q)
		if err == nil && !res.Empty() {
			if res.Provider == "" {
				res.Provider = provider.GetProviderName()
			}
			logger().Info().
				Str("title", q.Title).
				Str("artist", q.Artist).
				Str("provider", res.Provider).
				Bool("synced", res.Synced != "").
				Msg("Successfully got lyrics")
			return res, nil
		}
		if err == nil {
			err = ErrNotFound
		}
		if !errors.Is(err, ErrNotFound) {
			logger().Warn().
				Str("provider", provider.GetProviderName()).
				Err(err).
				Msg("Provider failed")
		}
		lastErr = err
	}

	return nil, fmt.Errorf("all providers failed to get lyrics for '%s - %s': %w", q.Title, q.Artist, lastErr)
}

// GetProviderName 获取管理器名称（实现MusicAPI接口）
func (m *Manager) GetProviderName() string {
	if m.primary != nil {
		return fmt.Sprintf("Manager[Primary: %s]", m.primary.GetProviderName())
	}
	return "Manager[No Providers]"
}

// GetProviderNames 获取所有提供商名称
func (m *Manager) GetProviderNames() []string {
	names := make([]string, len(m.providers))
	for i, provider := range m.providers {
		names[i] = provider.GetProviderName()
	}
	return names
}
