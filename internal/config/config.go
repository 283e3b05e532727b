package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSocketPath   = "/tmp/lirik.sock"
	DefaultPIDPath      = "/tmp/lirik.pid"
	DefaultPollInterval = 5 * time.Second
	DefaultRedirectURI  = "http://127.0.0.1:8888/callback"
	DefaultLyricsTTL    = 30 * 24 * time.Hour
	DefaultLyricsTimout = 10 * time.Second
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "config").Logger()
	return &l
}

// xdgDir returns $env/lirik, or ~/fallback/lirik when env is unset.
func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "lirik")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lirik")
	}
	return filepath.Join(homeDir, fallback, "lirik")
}

func getDefaultCacheDir() string { return xdgDir("XDG_CACHE_HOME", ".cache") }

// DefaultPath is $XDG_CONFIG_HOME/lirik/config.toml.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "config.toml")
}

// TomlConfig TOML配置文件结构，所有字段可选，空值保留默认设置
type TomlConfig struct {
	App struct {
		SocketPath     string `toml:"socket_path"`
		PIDPath        string `toml:"pid_path"`
		PollInterval   string `toml:"poll_interval"`
		LyricsOffsetMs int64  `toml:"lyrics_offset_ms"`
		CacheDir       string `toml:"cache_dir"`
		LogLevel       string `toml:"log_level"`
		LogFile        string `toml:"log_file"`
	} `toml:"app"`

	Player struct {
		Backend string `toml:"backend"`
	} `toml:"player"`

	Spotify struct {
		ClientID     string `toml:"client_id"`
		ClientSecret string `toml:"client_secret"`
		RedirectURI  string `toml:"redirect_uri"`
		TokenPath    string `toml:"token_path"`
	} `toml:"spotify"`

	MPD struct {
		Network  string `toml:"network"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
	} `toml:"mpd"`

	Playerctl struct {
		Player string `toml:"player"`
	} `toml:"playerctl"`

	Lyrics struct {
		Providers []string `toml:"providers"`
		LRCLibURL string   `toml:"lrclib_url"`
		UserAgent string   `toml:"user_agent"`
		Timeout   string   `toml:"timeout"`
		CacheTTL  string   `toml:"cache_ttl"`
	} `toml:"lyrics"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Web struct {
		Bind string `toml:"bind"`
		Port int    `toml:"port"`
	} `toml:"web"`

	StatusBar struct {
		Process string `toml:"process"`
		Signal  int    `toml:"signal"`
	} `toml:"statusbar"`
}

// AppConfig 应用配置
type AppConfig struct {
	SocketPath     string
	PIDPath        string
	PollInterval   time.Duration
	LyricsOffsetMs int64
	CacheDir       string
	LogLevel       string
	LogFile        string
}

type PlayerConfig struct {
	Backend string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenPath    string
}

type MPDConfig struct {
	Network  string
	Addr     string
	Password string
}

type PlayerctlConfig struct {
	Player string
}

type LyricsConfig struct {
	Providers []string
	LRCLibURL string
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

// AIConfig AI配置，APIKey 为空时不做标题规范化
type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string
}

// RedisConfig Redis配置，Addr 为空时不启用 Redis 缓存
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// WebConfig configures the HTTP mirror; Port 0 disables it.
type WebConfig struct {
	Bind string
	Port int
}

// StatusBarConfig names a bar process to signal on track changes; empty
// Process disables it.
type StatusBarConfig struct {
	Process string
	Signal  int
}

// Config 主配置结构
type Config struct {
	Path      string
	App       AppConfig
	Player    PlayerConfig
	Spotify   SpotifyConfig
	MPD       MPDConfig
	Playerctl PlayerctlConfig
	Lyrics    LyricsConfig
	AI        AIConfig
	Redis     RedisConfig
	Web       WebConfig
	StatusBar StatusBarConfig
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cacheDir := getDefaultCacheDir()
	return &Config{
		Path: DefaultPath(),
		App: AppConfig{
			SocketPath:   DefaultSocketPath,
			PIDPath:      DefaultPIDPath,
			PollInterval: DefaultPollInterval,
			CacheDir:     cacheDir,
			LogLevel:     "info",
			LogFile:      filepath.Join(cacheDir, "daemon.log"),
		},
		Player: PlayerConfig{Backend: "spotify"},
		Spotify: SpotifyConfig{
			RedirectURI: DefaultRedirectURI,
			TokenPath:   filepath.Join(cacheDir, "spotify_token.json"),
		},
		MPD: MPDConfig{Network: "tcp", Addr: "localhost:6600"},
		Lyrics: LyricsConfig{
			Providers: []string{"lrclib", "netease"},
			Timeout:   DefaultLyricsTimout,
			CacheTTL:  DefaultLyricsTTL,
		},
		AI:        AIConfig{ModuleName: "gemini"},
		Web:       WebConfig{Bind: "127.0.0.1"},
		StatusBar: StatusBarConfig{Signal: 11},
	}
}

// loadTomlConfig 加载TOML配置文件，文件不存在不算错误
func loadTomlConfig(configPath string) (*TomlConfig, bool, error) {
	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TomlConfig{}, false, nil
		}
		return nil, false, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return &config, true, nil
}

// Load reads path (DefaultPath when empty) over the defaults and applies the
// SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	tomlConfig, found, err := loadTomlConfig(path)
	if err != nil {
		return nil, err
	}
	if found {
		logger().Debug().Str("path", path).Msg("Loaded config")
	} else {
		logger().Debug().Str("path", path).Msg("Config file not found, using defaults")
	}

	config := Default()
	config.Path = path
	if err := config.overlay(tomlConfig); err != nil {
		return nil, err
	}

	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		config.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		config.Spotify.ClientSecret = v
	}
	return config, nil
}

func parseDuration(field, value string, dst *time.Duration) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be positive", field, value)
	}
	*dst = d
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// overlay 从TOML配置中覆盖默认设置
func (c *Config) overlay(t *TomlConfig) error {
	setString(&c.App.SocketPath, t.App.SocketPath)
	setString(&c.App.PIDPath, t.App.PIDPath)
	if err := parseDuration("app.poll_interval", t.App.PollInterval, &c.App.PollInterval); err != nil {
		return err
	}
	c.App.LyricsOffsetMs = t.App.LyricsOffsetMs
	if t.App.CacheDir != "" {
		c.App.CacheDir = expandHome(t.App.CacheDir)
		c.App.LogFile = filepath.Join(c.App.CacheDir, "daemon.log")
		c.Spotify.TokenPath = filepath.Join(c.App.CacheDir, "spotify_token.json")
	}
	setString(&c.App.LogLevel, strings.ToLower(t.App.LogLevel))
	if t.App.LogFile != "" {
		c.App.LogFile = expandHome(t.App.LogFile)
	}

	if b := strings.ToLower(t.Player.Backend); b != "" {
		switch b {
		case "spotify", "mpd", "playerctl":
			c.Player.Backend = b
		default:
			return fmt.Errorf("invalid player.backend %q (want spotify, mpd or playerctl)", t.Player.Backend)
		}
	}

	setString(&c.Spotify.ClientID, t.Spotify.ClientID)
	setString(&c.Spotify.ClientSecret, t.Spotify.ClientSecret)
	setString(&c.Spotify.RedirectURI, t.Spotify.RedirectURI)
	if t.Spotify.TokenPath != "" {
		c.Spotify.TokenPath = expandHome(t.Spotify.TokenPath)
	}

	setString(&c.MPD.Network, t.MPD.Network)
	setString(&c.MPD.Addr, t.MPD.Addr)
	setString(&c.MPD.Password, t.MPD.Password)
	setString(&c.Playerctl.Player, t.Playerctl.Player)

	if len(t.Lyrics.Providers) > 0 {
		c.Lyrics.Providers = t.Lyrics.Providers
	}
	setString(&c.Lyrics.LRCLibURL, t.Lyrics.LRCLibURL)
	setString(&c.Lyrics.UserAgent, t.Lyrics.UserAgent)
	if err := parseDuration("lyrics.timeout", t.Lyrics.Timeout, &c.Lyrics.Timeout); err != nil {
		return err
	}
	if err := parseDuration("lyrics.cache_ttl", t.Lyrics.CacheTTL, &c.Lyrics.CacheTTL); err != nil {
		return err
	}

	setString(&c.AI.ModuleName, t.AI.ModuleName)
	setString(&c.AI.APIKey, t.AI.APIKey)
	setString(&c.AI.BaseURL, t.AI.BaseURL)

	setString(&c.Redis.Addr, t.Redis.Addr)
	setString(&c.Redis.Password, t.Redis.Password)
	if t.Redis.DB != 0 {
		c.Redis.DB = t.Redis.DB
	}

	setString(&c.Web.Bind, t.Web.Bind)
	if t.Web.Port < 0 || t.Web.Port > 65535 {
		return fmt.Errorf("invalid web.port %d", t.Web.Port)
	}
	c.Web.Port = t.Web.Port

	setString(&c.StatusBar.Process, t.StatusBar.Process)
	if t.StatusBar.Signal != 0 {
		c.StatusBar.Signal = t.StatusBar.Signal
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// toToml converts c back into the file layout, for writing a starter config.
func (c *Config) toToml() *TomlConfig {
	var t TomlConfig
	t.App.SocketPath = c.App.SocketPath
	t.App.PIDPath = c.App.PIDPath
	t.App.PollInterval = c.App.PollInterval.String()
	t.App.LyricsOffsetMs = c.App.LyricsOffsetMs
	t.App.CacheDir = c.App.CacheDir
	t.App.LogLevel = c.App.LogLevel
	t.App.LogFile = c.App.LogFile
	t.Player.Backend = c.Player.Backend
	t.Spotify.ClientID = c.Spotify.ClientID
	t.Spotify.ClientSecret = c.Spotify.ClientSecret
	t.Spotify.RedirectURI = c.Spotify.RedirectURI
	t.Spotify.TokenPath = c.Spotify.TokenPath
	t.MPD.Network = c.MPD.Network
	t.MPD.Addr = c.MPD.Addr
	t.MPD.Password = c.MPD.Password
	t.Playerctl.Player = c.Playerctl.Player
	t.Lyrics.Providers = c.Lyrics.Providers
	t.Lyrics.LRCLibURL = c.Lyrics.LRCLibURL
	t.Lyrics.UserAgent = c.Lyrics.UserAgent
	t.Lyrics.Timeout = c.Lyrics.Timeout.String()
	t.Lyrics.CacheTTL = c.Lyrics.CacheTTL.String()
	t.AI.ModuleName = c.AI.ModuleName
	t.AI.APIKey = c.AI.APIKey
	t.AI.BaseURL = c.AI.BaseURL
	t.Redis.Addr = c.Redis.Addr
	t.Redis.Password = c.Redis.Password
	t.Redis.DB = c.Redis.DB
	t.Web.Bind = c.Web.Bind
	t.Web.Port = c.Web.Port
	t.StatusBar.Process = c.StatusBar.Process
	t.StatusBar.Signal = c.StatusBar.Signal
	return &t
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(Default().toToml()); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger().Info().Str("path", path).Msg("Wrote default config")
	return nil
}
