package music

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a source that answered but has no lyrics for the query.
var ErrNotFound = errors.New("lyrics not found")

// Query identifies a track. Duration is in whole seconds; 0 means unknown.
type Query struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration int    `json:"duration"`
}

// Result carries the raw lyric blobs of one source. Either may be empty.
type Result struct {
	Synced   string
	Plain    string
	Provider string
}

// Empty reports whether the result carries no lyrics at all.
func (r *Result) Empty() bool {
	return r == nil || (r.Synced == "" && r.Plain == "")
}

// MusicAPI 歌词来源通用接口
type MusicAPI interface {
	// FetchLyrics looks the query up and returns the raw blobs, or ErrNotFound.
	FetchLyrics(ctx context.Context, q Query) (*Result, error)

	// GetProviderName 获取提供商名称
	GetProviderName() string
}
