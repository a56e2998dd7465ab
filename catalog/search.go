// Package catalog searches YouTube and YouTube Music for playable videos.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"golang.org/x/time/rate"
)

var (
	// ErrNoResults is returned when no backend found anything for a query.
	ErrNoResults = errors.New("no results")
	// ErrEmptyPlaylist is returned when a playlist link lists no playable entries.
	ErrEmptyPlaylist = errors.New("playlist has no playable entries")
)

const (
	defaultCacheTTL      = time.Hour
	defaultSearchTimeout = 8 * time.Second
	defaultSearchResults = 25
	suggestTimeout       = 2300 * time.Millisecond
	maxSuggestions       = 25
)

// Backend is one search provider.
type Backend struct {
	Name   string
	Search func(ctx context.Context, query string) ([]radio.Candidate, error)
}

// Options configures a Searcher.
type Options struct {
	Proxy      string
	CacheTTL   time.Duration
	Timeout    time.Duration
	RatePerSec float64
	MaxResults int
}

// Searcher runs queries against the configured backends, first hit wins.
type Searcher struct {
	backends []Backend
	suggest  []Backend
	meta     func(ctx context.Context, u string) (radio.Candidate, error)
	list     func(ctx context.Context, u string, max int) ([]radio.Candidate, error)
	cache    *QueryCache
	limiter  *rate.Limiter
	timeout  time.Duration
}

var _ radio.CatalogSearcher = (*Searcher)(nil)

// NewSearcher wires ytsearch first and a yt-dlp flat search as fallback.
// YouTube Music does not report durations, so it only feeds suggestions and /play.
func NewSearcher(opts Options) *Searcher {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultSearchResults
	}
	y := &ytdlpRunner{proxy: opts.Proxy}
	yt := Backend{Name: "youtube", Search: searchYouTube}
	ytm := Backend{Name: "ytmusic", Search: searchYTMusic}
	dlp := Backend{Name: "yt-dlp", Search: func(ctx context.Context, q string) ([]radio.Candidate, error) {
		return y.search(ctx, q, opts.MaxResults)
	}}
	s := newSearcher([]Backend{yt, dlp}, []Backend{ytm, yt}, opts)
	s.meta, s.list = y.metadata, y.playlist
	return s
}

func newSearcher(backends, suggest []Backend, opts Options) *Searcher {
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSearchTimeout
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 4
	}
	return &Searcher{
		backends: backends,
		suggest:  suggest,
		cache:    NewQueryCache(opts.CacheTTL),
		limiter:  rate.NewLimiter(rate.Limit(opts.RatePerSec), 10),
		timeout:  opts.Timeout,
	}
}

// Search returns candidates for query from the first backend that has any.
// It returns an error only when every backend failed.
func (s *Searcher) Search(ctx context.Context, query string) ([]radio.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if hit, ok := s.cache.Get(query); ok {
		return hit, nil
	}

	var errs []error
	for _, b := range s.backends {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		results, err := s.runBackend(ctx, b, query)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			continue
		}
		if len(results) > 0 {
			s.cache.Set(query, results)
			return results, nil
		}
	}
	if len(errs) == len(s.backends) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func (s *Searcher) runBackend(ctx context.Context, b Backend, query string) ([]radio.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	results, err := b.Search(ctx, query)
	sys.LogCatalogDebug("%s search %q: %d results in %s (err=%v)", b.Name, query, len(results), time.Since(start).Round(time.Millisecond), err)
	return results, err
}

// Suggest queries the suggestion backends in parallel and merges their hits,
// deduplicated by id and ranked by closeness to query. Slow backends are dropped.
func (s *Searcher) Suggest(ctx context.Context, query string) []radio.Candidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, suggestTimeout)
	defer cancel()

	var mu sync.Mutex
	buckets := make([][]radio.Candidate, len(s.suggest))
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i, b := range s.suggest {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := b.Search(ctx, query)
			if err != nil {
				return
			}
			mu.Lock()
			buckets[i] = r
			mu.Unlock()
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	seen := make(map[string]bool)
	var out []radio.Candidate
	for _, bucket := range buckets {
		for _, c := range bucket {
			if c.ID == "" || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	out = Rank(query, out)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// PruneCache drops expired query cache entries.
func (s *Searcher) PruneCache() int {
	return s.cache.Prune()
}

func searchYouTube(ctx context.Context, query string) ([]radio.Candidate, error) {
	res, err := ytsearch.NewClient(nil).Search(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]radio.Candidate, 0, len(res.Results))
	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		out = append(out, radio.Candidate{
			Title:     v.Title,
			URL:       WatchURL(v.VideoID),
			ID:        v.VideoID,
			Thumbnail: ThumbnailURL(v.VideoID),
			Channel:   v.Channel,
			Seconds:   ParseDuration(v.Duration),
		})
	}
	return out, nil
}

func searchYTMusic(ctx context.Context, query string) ([]radio.Candidate, error) {
	type result struct {
		r   []radio.Candidate
		err error
	}
	ch := make(chan result, 1)
	go func() {
		r, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			ch <- result{err: err}
			return
		}
		var out []radio.Candidate
		for _, v := range r.Tracks {
			if v.VideoID == "" {
				continue
			}
			artist := ""
			if len(v.Artists) > 0 {
				artist = v.Artists[0].Name
			}
			title := v.Title
			if artist != "" {
				title = artist + " - " + v.Title
			}
			out = append(out, radio.Candidate{
				Title:     title,
				URL:       "https://music.youtube.com/watch?v=" + v.VideoID,
				ID:        v.VideoID,
				Thumbnail: ThumbnailURL(v.VideoID),
				Channel:   artist,
			})
		}
		ch <- result{r: out}
	}()
	select {
	case res := <-ch:
		return res.r, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CacheLen reports how many queries are cached.
func (s *Searcher) CacheLen() int {
	return s.cache.Len()
}
