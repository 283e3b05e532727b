package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL   = "https://lrclib.net/api"
	DefaultUserAgent = "lirik/0.1.0"
	// 最大允许3秒误差
	maxDurationDiff = 3
)

// ErrNotFound is returned when neither /get nor /search has a usable record.
var ErrNotFound = errors.New("lrclib: no lyrics found")

func logger() *zerolog.Logger {
	l := log.With().Str("component", "lrclib").Logger()
	return &l
}

// Client LRCLib客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxRetries int
}

// LRCLibResponse LRCLib API响应结构
type LRCLibResponse struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// LRCLibSearchResponse LRCLib API搜索响应（列表）
type LRCLibSearchResponse []LRCLibResponse

// NewClient 创建新的LRCLib客户端，baseURL 和 userAgent 为空时使用默认值
func NewClient(httpClient *http.Client, baseURL, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		maxRetries: 1,
	}
}

// GetProviderName 返回提供商名称
func (c *Client) GetProviderName() string {
	return "LRCLib"
}

// Lookup asks /get for the exact signature first and falls back to /search when
// the record is missing. duration is in whole seconds; 0 skips it.
func (c *Client) Lookup(ctx context.Context, title, artist string, duration int) (*LRCLibResponse, error) {
	rec, err := c.Get(ctx, title, artist, duration)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	logger().Debug().Str("title", title).Str("artist", artist).Msg("Exact lookup missed, searching")
	return c.Search(ctx, title, artist, duration)
}

// Get calls /get with artist, track and duration.
func (c *Client) Get(ctx context.Context, title, artist string, duration int) (*LRCLibResponse, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if duration > 0 {
		params.Set("duration", strconv.Itoa(duration))
	}

	var rec LRCLibResponse
	if err := c.getJSON(ctx, "/get", params, &rec); err != nil {
		return nil, err
	}
	if rec.SyncedLyrics == "" && rec.PlainLyrics == "" {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Search calls /search and picks the closest record.
func (c *Client) Search(ctx context.Context, title, artist string, duration int) (*LRCLibResponse, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)

	var results LRCLibSearchResponse
	if err := c.getJSON(ctx, "/search", params, &results); err != nil {
		return nil, err
	}

	logger().Debug().Int("results", len(results)).Str("title", title).Str("artist", artist).Msg("Search finished")

	bestMatch := findBestMatch(results, title, artist, duration)
	if bestMatch == nil || (bestMatch.SyncedLyrics == "" && bestMatch.PlainLyrics == "") {
		return nil, ErrNotFound
	}
	return bestMatch, nil
}

// getJSON issues the request, retrying transport errors and 5xx responses.
// 404 maps to ErrNotFound.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*500) * time.Millisecond):
			}
			logger().Debug().Int("attempt", attempt).Str("path", path).Msg("Retrying request")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request %s: %w", path, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("request %s returned status %d", path, resp.StatusCode)
			continue
		default:
			resp.Body.Close()
			return fmt.Errorf("request %s returned status %d", path, resp.StatusCode)
		}
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// findBestMatch 从搜索结果中找到最佳匹配的歌词
func findBestMatch(responses LRCLibSearchResponse, targetTitle, targetArtist string, targetDuration int) *LRCLibResponse {
	if len(responses) == 0 {
		return nil
	}

	// 先按匹配精确度查找
	var exactMatches []*LRCLibResponse
	var titleMatches []*LRCLibResponse

	for i := range responses {
		response := &responses[i]
		if response.Instrumental {
			continue
		}

		if containsIgnoreCase(response.TrackName, targetTitle) && containsIgnoreCase(response.ArtistName, targetArtist) {
			exactMatches = append(exactMatches, response)
		} else if containsIgnoreCase(response.TrackName, targetTitle) {
			titleMatches = append(titleMatches, response)
		}
	}

	// 如果有精确匹配，优先从精确匹配中筛选时长
	matchPool := exactMatches
	if len(matchPool) == 0 {
		matchPool = titleMatches
	}
	if len(matchPool) == 0 {
		return nil
	}

	if targetDuration > 0 {
		bestMatch := matchPool[0]
		minDiff := abs(int(bestMatch.Duration) - targetDuration)

		for _, m := range matchPool {
			diff := abs(int(m.Duration) - targetDuration)
			if diff <= maxDurationDiff {
				return m
			}
			if diff < minDiff {
				minDiff = diff
				bestMatch = m
			}
		}

		logger().Debug().Int("diff_seconds", minDiff).Msg("Using best duration match")
		return bestMatch
	}

	return matchPool[0]
}

// abs 返回整数的绝对值
func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// containsIgnoreCase 忽略大小写检查包含关系
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
