package netease

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search/get/web", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") == "" {
			t.Error("search term missing")
		}
		_, _ = w.Write([]byte(`{"result":{"songs":[
			{"id":1,"name":"Test Song (Cover)","artists":[{"name":"Someone"}]},
			{"id":123,"name":"Test Song","artists":[{"name":"Feat"},{"name":"Test Artist"}]}
		]}}`))
	})
	mux.HandleFunc("/api/song/lyric", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "123" {
			_, _ = w.Write([]byte(`{"lrc":{"lyric":""}}`))
			return
		}
		_, _ = w.Write([]byte(`{"lrc":{"lyric":"[00:01.00]line one\n[00:02.00]line two"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchAndLyrics(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.Client(), srv.URL)

	id, err := client.SearchSong(context.Background(), "Test Song", "Test Artist")
	if err != nil {
		t.Fatalf("SearchSong: %v", err)
	}
	if id != "123" {
		t.Fatalf("expected song 123, got %s", id)
	}

	lrc, err := client.GetLyrics(context.Background(), id)
	if err != nil {
		t.Fatalf("GetLyrics: %v", err)
	}
	if lrc != "[00:01.00]line one\n[00:02.00]line two" {
		t.Errorf("unexpected lyrics %q", lrc)
	}

	if _, err := client.GetLyrics(context.Background(), "9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty lyric should be ErrNotFound, got %v", err)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL).SearchSong(context.Background(), "a", "b")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFindBestMatch(t *testing.T) {
	var resp NeteaseSearchResponse
	if got := findBestMatch(resp, "a", "b"); got != 0 {
		t.Errorf("empty search should not match, got %d", got)
	}
	if !containsIgnoreCase("Hello World", "helloworld") {
		t.Error("spaces and case should be ignored")
	}
}
