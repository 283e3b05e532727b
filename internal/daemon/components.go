package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"lirik/internal/config"
	"lirik/internal/lyrics"
	"lirik/internal/player"
	"lirik/internal/player/mpd"
	"lirik/internal/player/playerctl"
	"lirik/internal/player/spotify"
	"lirik/pkg/ai"
	"lirik/pkg/ai/gemini"
	"lirik/pkg/ai/openai"
	"lirik/pkg/music"
	"lirik/pkg/redis"
)

// NewPlayer builds the playback adapter selected by player.backend.
func NewPlayer(ctx context.Context, cfg *config.Config) (player.Adapter, error) {
	switch cfg.Player.Backend {
	case "", "spotify":
		if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
			return nil, fmt.Errorf("spotify: %w: set client_id and client_secret or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET", player.ErrNotConfigured)
		}
		conf := spotify.OAuthConfig(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURI)
		httpClient, err := spotify.NewHTTPClient(ctx, conf, cfg.Spotify.TokenPath)
		if err != nil {
			return nil, err
		}
		return spotify.NewClient(httpClient, ""), nil
	case "mpd":
		if cfg.MPD.Addr == "" {
			return nil, fmt.Errorf("mpd: %w: set mpd.addr", player.ErrNotConfigured)
		}
		return mpd.NewClient(cfg.MPD.Network, cfg.MPD.Addr, cfg.MPD.Password), nil
	case "playerctl":
		return playerctl.NewClient(cfg.Playerctl.Player), nil
	}
	return nil, fmt.Errorf("unknown player backend %q", cfg.Player.Backend)
}

// NewLyrics builds the lyrics provider with its caches and optional title
// normalizer. The returned func releases redis and AI clients.
func NewLyrics(ctx context.Context, cfg *config.Config) (*lyrics.Provider, func()) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger().Debug().Err(err).Msg("Close failed")
			}
		}
	}

	var source music.MusicAPI
	manager, err := music.CreateManager(cfg.Lyrics.Providers, music.Options{
		LRCLibURL: cfg.Lyrics.LRCLibURL,
		UserAgent: cfg.Lyrics.UserAgent,
		Timeout:   cfg.Lyrics.Timeout,
	})
	if err != nil {
		logger().Warn().Err(err).Msg("No usable lyrics providers configured, falling back to lrclib")
		manager, _ = music.CreateManager([]string{string(music.ProviderLRCLib)}, music.Options{
			UserAgent: cfg.Lyrics.UserAgent,
			Timeout:   cfg.Lyrics.Timeout,
		})
	}
	source = manager
	logger().Info().Strs("providers", manager.GetProviderNames()).Msg("Lyrics providers ready")

	caches := []lyrics.Cache{
		lyrics.NewMemoryCache(cfg.Lyrics.CacheTTL),
		lyrics.NewFileCache(filepath.Join(cfg.App.CacheDir, "lyrics"), cfg.Lyrics.CacheTTL),
	}
	if cfg.Redis.Addr != "" {
		rc, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger().Warn().Err(err).Msg("Redis unavailable, continuing without it")
		} else {
			closers = append(closers, rc.Close)
			caches = append(caches, lyrics.NewRedisCache(rc, cfg.Lyrics.CacheTTL))
		}
	}

	var normalizer ai.AiInterface
	if cfg.AI.APIKey != "" {
		module := strings.ToLower(cfg.AI.ModuleName)
		if strings.HasPrefix(module, "gemini") {
			g, err := gemini.NewGemini(ctx, cfg.AI.APIKey, module)
			if err != nil {
				logger().Warn().Err(err).Msg("Gemini unavailable, title normalization disabled")
			} else {
				closers = append(closers, g.Close)
				normalizer = g
			}
		} else {
			normalizer = openai.NewOpenAi(cfg.AI.APIKey, module, cfg.AI.BaseURL)
		}
		if normalizer != nil {
			logger().Info().Str("module", normalizer.Name()).Msg("Title normalization enabled")
		}
	}

	return lyrics.NewProvider(lyrics.Options{
		Source:     source,
		Caches:     caches,
		Normalizer: normalizer,
		Timeout:    cfg.Lyrics.Timeout,
	}), closeAll
}
