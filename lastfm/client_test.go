package lastfm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leeineian/smartradio/radio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func (m *memCache) GetLookup(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) SetLookup(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[key] = value
	m.sets++
	return nil
}

func newServer(t *testing.T, handler func(q url.Values) (int, string)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		status, body := handler(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []radio.SimilarTrack
	}{
		{
			name: "array",
			body: `{"similartracks":{"track":[
				{"name":"Under Pressure","artist":{"name":"Queen"}},
				{"name":"","artist":{"name":"Nobody"}},
				{"name":"Heroes","artist":{"name":"David Bowie"}}]}}`,
			want: []radio.SimilarTrack{{Name: "Under Pressure", Artist: "Queen"}, {Name: "Heroes", Artist: "David Bowie"}},
		},
		{
			name: "single object",
			body: `{"similartracks":{"track":{"name":"Kuzu Kuzu","artist":{"name":"Tarkan"}}}}`,
			want: []radio.SimilarTrack{{Name: "Kuzu Kuzu", Artist: "Tarkan"}},
		},
		{
			name: "api error",
			body: `{"error":6,"message":"Track not found"}`,
		},
		{
			name: "no tracks",
			body: `{"similartracks":{"track":[]}}`,
		},
		{
			name: "garbage",
			body: `<html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen url.Values
			srv, _ := newServer(t, func(q url.Values) (int, string) {
				seen = q
				return http.StatusOK, tt.body
			})
			c := New(Config{APIKey: "k", BaseURL: srv.URL})

			got := c.Similar(context.Background(), "Queen", "Bohemian Rhapsody", 3)
			assert.Equal(t, tt.want, got)

			require.NotNil(t, seen)
			assert.Equal(t, "track.getsimilar", seen.Get("method"))
			assert.Equal(t, "Queen", seen.Get("artist"))
			assert.Equal(t, "Bohemian Rhapsody", seen.Get("track"))
			assert.Equal(t, "3", seen.Get("limit"))
			assert.Equal(t, "1", seen.Get("autocorrect"))
			assert.Equal(t, "json", seen.Get("format"))
			assert.Equal(t, "k", seen.Get("api_key"))
		})
	}
}

func TestSearchTrack(t *testing.T) {
	srv, _ := newServer(t, func(q url.Values) (int, string) {
		assert.Equal(t, "track.search", q.Get("method"))
		assert.Equal(t, "10", q.Get("limit"))
		return http.StatusOK, `{"results":{"trackmatches":{"track":[
			{"name":"Şımarık","artist":"Tarkan"},
			{"name":"Simarik (Remix)","artist":"Someone"}]}}}`
	})
	c := New(Config{APIKey: "k", BaseURL: srv.URL})

	got, ok := c.SearchTrack(context.Background(), "Simarik")
	require.True(t, ok)
	assert.Equal(t, radio.SimilarTrack{Name: "Şımarık", Artist: "Tarkan"}, got)
}

func TestSearchTrack_NoMatches(t *testing.T) {
	srv, _ := newServer(t, func(url.Values) (int, string) {
		return http.StatusOK, `{"results":{"trackmatches":{"track":[]}}}`
	})
	c := New(Config{APIKey: "k", BaseURL: srv.URL})

	_, ok := c.SearchTrack(context.Background(), "nothing")
	assert.False(t, ok)
}

func TestClient_NoKeyMakesNoRequest(t *testing.T) {
	srv, hits := newServer(t, func(url.Values) (int, string) {
		return http.StatusOK, `{}`
	})
	c := New(Config{BaseURL: srv.URL})

	assert.False(t, c.Enabled())
	assert.Empty(t, c.Similar(context.Background(), "Queen", "Bohemian Rhapsody", 3))
	_, ok := c.SearchTrack(context.Background(), "Bohemian Rhapsody")
	assert.False(t, ok)
	assert.Zero(t, hits.Load())
}

func TestClient_HTTPErrorIsEmpty(t *testing.T) {
	srv, _ := newServer(t, func(url.Values) (int, string) {
		return http.StatusInternalServerError, `{"similartracks":{"track":{"name":"x","artist":{"name":"y"}}}}`
	})
	c := New(Config{APIKey: "k", BaseURL: srv.URL})
	assert.Empty(t, c.Similar(context.Background(), "Queen", "Bohemian Rhapsody", 3))
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	assert.Empty(t, c.Similar(context.Background(), "Queen", "Bohemian Rhapsody", 3))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_Cache(t *testing.T) {
	srv, hits := newServer(t, func(url.Values) (int, string) {
		return http.StatusOK, `{"similartracks":{"track":{"name":"Heroes","artist":{"name":"David Bowie"}}}}`
	})
	cache := &memCache{}
	c := New(Config{APIKey: "k", BaseURL: srv.URL, Cache: cache})

	first := c.Similar(context.Background(), "Queen", "Bohemian Rhapsody", 3)
	second := c.Similar(context.Background(), "Queen", "Bohemian Rhapsody", 3)

	assert.Equal(t, first, second)
	assert.Len(t, first, 1)
	assert.EqualValues(t, 1, hits.Load())
	assert.Equal(t, 1, cache.sets)
}

func TestClient_ErrorsAreNotCached(t *testing.T) {
	srv, hits := newServer(t, func(url.Values) (int, string) {
		return http.StatusOK, `{"error":29,"message":"Rate limit exceeded"}`
	})
	cache := &memCache{}
	c := New(Config{APIKey: "k", BaseURL: srv.URL, Cache: cache})

	c.Similar(context.Background(), "Queen", "Bohemian Rhapsody", 3)
	c.Similar(context.Background(), "Queen", "Bohemian Rhapsody", 3)
	assert.EqualValues(t, 2, hits.Load())
	assert.Zero(t, cache.sets)
}
