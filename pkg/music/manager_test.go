package music

import (
	"context"
	"errors"
	"testing"
)

// mockProvider 模拟歌词来源
type mockProvider struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (m *mockProvider) FetchLyrics(ctx context.Context, q Query) (*Result, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockProvider) GetProviderName() string {
	return m.name
}

func TestFetchLyrics(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		provider := &mockProvider{name: "TestProvider", result: &Result{Synced: "[00:10.00]Test lyrics"}}

		manager := NewManager([]MusicAPI{provider})
		res, err := manager.FetchLyrics(context.Background(), Query{Title: "Test Song", Artist: "Test Artist"})
		if err != nil {
			t.Fatalf("Expected success, got error: %v", err)
		}
		if res.Synced != "[00:10.00]Test lyrics" {
			t.Errorf("Expected '[00:10.00]Test lyrics', got '%s'", res.Synced)
		}
		if res.Provider != "TestProvider" {
			t.Errorf("Provider = %q", res.Provider)
		}
	})

	t.Run("FailoverSuccess", func(t *testing.T) {
		failProvider := &mockProvider{name: "FailProvider", err: errors.New("boom")}
		emptyProvider := &mockProvider{name: "EmptyProvider", result: &Result{}}
		successProvider := &mockProvider{name: "SuccessProvider", result: &Result{Plain: "hello"}}

		manager := NewManager([]MusicAPI{failProvider, emptyProvider, successProvider})
		res, err := manager.FetchLyrics(context.Background(), Query{Title: "Test Song"})
		if err != nil {
			t.Fatalf("Expected success with failover, got error: %v", err)
		}
		if res.Plain != "hello" || res.Provider != "SuccessProvider" {
			t.Errorf("unexpected result %+v", res)
		}
		if failProvider.calls != 1 || emptyProvider.calls != 1 {
			t.Error("earlier providers should be tried once each")
		}
	})

	t.Run("AllNotFound", func(t *testing.T) {
		manager := NewManager([]MusicAPI{
			&mockProvider{name: "A", err: ErrNotFound},
			&mockProvider{name: "B", result: nil},
		})
		_, err := manager.FetchLyrics(context.Background(), Query{Title: "Test Song"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("NoProviders", func(t *testing.T) {
		if _, err := NewManager(nil).FetchLyrics(context.Background(), Query{}); err == nil {
			t.Error("Expected error with no providers")
		}
	})
}

func TestManagerName(t *testing.T) {
	manager := NewManager([]MusicAPI{&mockProvider{name: "TestProvider"}})

	name := manager.GetProviderName()
	expected := "Manager[Primary: TestProvider]"
	if name != expected {
		t.Errorf("Expected provider name '%s', got '%s'", expected, name)
	}
}

func TestCreateManager(t *testing.T) {
	manager, err := CreateManager([]string{"lrclib", "bogus", "NetEase"}, Options{})
	if err != nil {
		t.Fatalf("CreateManager: %v", err)
	}
	names := manager.GetProviderNames()
	if len(names) != 2 || names[0] != "LRCLib" || names[1] != "NetEase Cloud Music" {
		t.Errorf("providers = %v", names)
	}

	if _, err := CreateManager([]string{"bogus"}, Options{}); err == nil {
		t.Error("Expected error when no provider could be created")
	}
}
