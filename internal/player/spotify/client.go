// Package spotify implements player.Adapter against the Spotify Web API.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lirik/internal/player"
)

const (
	DefaultBaseURL = "https://api.spotify.com/v1"
	requestTimeout = 10 * time.Second
)

type image struct {
	URL string `json:"url"`
}

type item struct {
	Type         string            `json:"type"`
	Name         string            `json:"name"`
	DurationMs   int64             `json:"duration_ms"`
	Explicit     bool              `json:"explicit"`
	Popularity   int               `json:"popularity"`
	ExternalURLs map[string]string `json:"external_urls"`
	Artists      []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string  `json:"name"`
		Images []image `json:"images"`
	} `json:"album"`
	Show struct {
		Name string `json:"name"`
	} `json:"show"`
	Images []image `json:"images"`
}

// playbackResponse is the body of GET /me/player. Item is null between tracks
// and for unsupported media.
type playbackResponse struct {
	Device struct {
		Name          string `json:"name"`
		Type          string `json:"type"`
		VolumePercent *int   `json:"volume_percent"`
	} `json:"device"`
	ShuffleState bool   `json:"shuffle_state"`
	RepeatState  string `json:"repeat_state"`
	Context      *struct {
		Type string `json:"type"`
		URI  string `json:"uri"`
	} `json:"context"`
	ProgressMs *int64 `json:"progress_ms"`
	IsPlaying  bool   `json:"is_playing"`
	Item       *item  `json:"item"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the player endpoints. The http.Client is expected to attach
// OAuth tokens (see NewHTTPClient).
type Client struct {
	http    *http.Client
	baseURL string
}

var _ player.Adapter = (*Client)(nil)

// NewClient builds a Client; an empty baseURL selects the public API.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Name() string { return "spotify" }

func (c *Client) do(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func decodeError(resp *http.Response) error {
	var payload apiError
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("spotify: %s (status %d)", payload.Error.Message, resp.StatusCode)
	}
	return fmt.Errorf("spotify: unexpected status %d", resp.StatusCode)
}

// CurrentPlayback fetches /me/player. 204 means no active device.
func (c *Client) CurrentPlayback(ctx context.Context) (*player.NowPlaying, error) {
	q := url.Values{}
	q.Set("additional_types", "track,episode")
	resp, err := c.do(ctx, http.MethodGet, "/me/player", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, decodeError(resp)
	}

	var payload playbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode playback: %w", err)
	}
	return toNowPlaying(&payload), nil
}

func toNowPlaying(p *playbackResponse) *player.NowPlaying {
	if p.Item == nil {
		return nil
	}
	var progressMs int64
	if p.ProgressMs != nil {
		progressMs = *p.ProgressMs
	}

	np := &player.NowPlaying{
		Track:      p.Item.Name,
		Explicit:   p.Item.Explicit,
		ProgressMs: progressMs,
		Progress:   player.FormatTime(progressMs),
		DurationMs: p.Item.DurationMs,
		Duration:   player.FormatTime(p.Item.DurationMs),
		IsPlaying:  p.IsPlaying,
		Shuffle:    p.ShuffleState,
		Repeat:     player.RepeatMode(strings.ToLower(p.RepeatState)),
		Device: &player.Device{
			Name:       p.Device.Name,
			DeviceType: p.Device.Type,
			Volume:     p.Device.VolumePercent,
		},
	}
	if np.Repeat == "" {
		np.Repeat = player.RepeatOff
	}
	if p.Context != nil {
		np.Context = &player.PlayContext{ContextType: strings.ToLower(p.Context.Type), URI: p.Context.URI}
	}
	if u, ok := p.Item.ExternalURLs["spotify"]; ok {
		np.ExternalURL = &u
	}

	images := p.Item.Album.Images
	if p.Item.Type == "episode" {
		np.Artist = p.Item.Show.Name
		images = p.Item.Images
	} else {
		names := make([]string, 0, len(p.Item.Artists))
		for _, a := range p.Item.Artists {
			names = append(names, a.Name)
		}
		np.Artist = strings.Join(names, ", ")
		np.Album = p.Item.Album.Name
		np.Popularity = p.Item.Popularity
	}
	if len(images) > 0 {
		art := images[0].URL
		np.AlbumArt = &art
	}
	return np
}

func (c *Client) command(ctx context.Context, method, path string, query url.Values) error {
	resp, err := c.do(ctx, method, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	return nil
}

func (c *Client) Pause(ctx context.Context) error {
	return c.command(ctx, http.MethodPut, "/me/player/pause", nil)
}

func (c *Client) Resume(ctx context.Context) error {
	return c.command(ctx, http.MethodPut, "/me/player/play", nil)
}

func (c *Client) Next(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, "/me/player/next", nil)
}

func (c *Client) Previous(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, "/me/player/previous", nil)
}

func (c *Client) SetVolume(ctx context.Context, percent int) error {
	return c.command(ctx, http.MethodPut, "/me/player/volume", url.Values{"volume_percent": {strconv.Itoa(percent)}})
}

func (c *Client) Seek(ctx context.Context, positionMs int64) error {
	return c.command(ctx, http.MethodPut, "/me/player/seek", url.Values{"position_ms": {strconv.FormatInt(positionMs, 10)}})
}

func (c *Client) SetShuffle(ctx context.Context, on bool) error {
	return c.command(ctx, http.MethodPut, "/me/player/shuffle", url.Values{"state": {strconv.FormatBool(on)}})
}

func (c *Client) SetRepeat(ctx context.Context, mode player.RepeatMode) error {
	return c.command(ctx, http.MethodPut, "/me/player/repeat", url.Values{"state": {string(mode)}})
}
