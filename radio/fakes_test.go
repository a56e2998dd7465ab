package radio

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type fakeCatalog struct {
	mu       sync.Mutex
	results  map[string][]Candidate
	fallback []Candidate
	err      error
	calls    []string
}

func (f *fakeCatalog) Search(_ context.Context, query string) ([]Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return f.fallback, nil
}

func (f *fakeCatalog) callsWithPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeSimilar struct {
	similar      map[string][]SimilarTrack
	search       map[string]SimilarTrack
	similarCalls []string
	searchCalls  []string
}

func (f *fakeSimilar) Similar(_ context.Context, artist, track string, _ int) []SimilarTrack {
	key := artist + "|" + track
	f.similarCalls = append(f.similarCalls, key)
	return f.similar[key]
}

func (f *fakeSimilar) SearchTrack(_ context.Context, track string) (SimilarTrack, bool) {
	f.searchCalls = append(f.searchCalls, track)
	m, ok := f.search[track]
	return m, ok
}

// fixedRand always answers the same index, wrapped into range.
type fixedRand int

func (r fixedRand) IntN(n int) int { return int(r) % n }

var errCatalogDown = errors.New("catalog down")

func hits(prefix string, n, secs int) []Candidate {
	out := make([]Candidate, 0, n)
	for i := range n {
		id := prefix + strings.Repeat("0", 10-len(prefix)) + string(rune('a'+i%26))
		out = append(out, Candidate{
			ID:      id,
			Title:   prefix + " Artist " + string(rune('A'+i%26)) + " - Tune " + string(rune('A'+i%26)),
			URL:     "https://www.youtube.com/watch?v=" + id,
			Channel: prefix,
			Seconds: secs,
		})
	}
	return out
}
