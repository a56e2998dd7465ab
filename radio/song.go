// Package radio picks the next song when a queue runs dry: it parses the
// finished title, sources related candidates through a cascade of lookups,
// filters out repeats and non-music, and prefers a different artist.
package radio

import "sync"

// AutoplayAttribution marks songs that were picked by the radio instead of a user.
const AutoplayAttribution = "🤖 Smart Radio"

// Song is a playable queue entry.
type Song struct {
	Title       string
	URL         string
	ID          string
	Keywords    []string
	Thumbnail   string
	Duration    string
	RequestedBy string
}

// Key returns the identity of the song: the external id when known, otherwise the URL.
func (s Song) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.URL
}

// EnsureID backfills a missing id from the URL using extract.
func (s *Song) EnsureID(extract func(string) string) {
	if s.ID != "" || extract == nil {
		return
	}
	s.ID = extract(s.URL)
}

// IsAutoplay reports whether the radio queued this song.
func (s Song) IsAutoplay() bool {
	return s.RequestedBy == AutoplayAttribution
}

// Candidate is one raw search hit in a candidate pool.
type Candidate struct {
	Title     string
	URL       string
	ID        string
	Thumbnail string
	Channel   string
	// Seconds and DurationSeconds are the two places a duration may arrive in;
	// search backends fill whichever they know.
	Seconds         int
	DurationSeconds int
}

// EffectiveSeconds returns the first known duration, or 0.
func (c Candidate) EffectiveSeconds() int {
	if c.Seconds > 0 {
		return c.Seconds
	}
	if c.DurationSeconds > 0 {
		return c.DurationSeconds
	}
	return 0
}

// SimilarTrack is a (track, artist) pair returned by a similar-track service.
type SimilarTrack struct {
	Name   string
	Artist string
}

// History is the set of external ids already played in one session.
// It only grows until the session is torn down.
type History struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewHistory returns an empty history, optionally seeded with ids.
func NewHistory(ids ...string) *History {
	h := &History{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		h.Add(id)
	}
	return h
}

func (h *History) Add(id string) {
	if h == nil || id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ids == nil {
		h.ids = make(map[string]struct{})
	}
	h.ids[id] = struct{}{}
}

func (h *History) Has(id string) bool {
	if h == nil || id == "" {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.ids[id]
	return ok
}

func (h *History) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ids)
}

// Clone returns an independent copy.
func (h *History) Clone() *History {
	c := NewHistory()
	if h == nil {
		return c
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.ids {
		c.ids[id] = struct{}{}
	}
	return c
}

// Reset drops every id.
func (h *History) Reset() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.ids = make(map[string]struct{})
	h.mu.Unlock()
}
