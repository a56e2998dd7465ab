package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

// DefaultPlaylistLimit caps how many playlist entries are queued at once.
const DefaultPlaylistLimit = 100

// FallbackURLTitle is shown when a link's metadata cannot be resolved.
const FallbackURLTitle = "URL track"

// Resolve turns /play input into a song. Links are taken as-is with metadata
// looked up when possible. Text takes the search engine's top hit.
func (s *Searcher) Resolve(ctx context.Context, query string) (radio.Song, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return radio.Song{}, ErrNoResults
	}
	if IsURL(query) {
		return s.resolveURL(ctx, query), nil
	}

	hits, err := s.Search(ctx, query)
	if err != nil {
		return radio.Song{}, fmt.Errorf("search %q: %w", query, err)
	}
	if len(hits) == 0 {
		return radio.Song{}, ErrNoResults
	}
	return candidateSong(hits[0]), nil
}

func (s *Searcher) resolveURL(ctx context.Context, u string) radio.Song {
	song := radio.Song{URL: u, ID: ExtractVideoID(u), Title: FallbackURLTitle}
	if s.meta == nil {
		return withThumbnail(song)
	}
	meta, err := s.meta(ctx, u)
	if err != nil {
		sys.LogCatalogDebug("Metadata for %s failed: %v", u, err)
		return withThumbnail(song)
	}
	if meta.Title != "" {
		song.Title = meta.Title
	}
	if song.ID == "" {
		song.ID = meta.ID
	}
	song.Duration = FormatDuration(meta.EffectiveSeconds())
	return withThumbnail(song)
}

// Playlist expands a playlist link into songs, at most max of them.
func (s *Searcher) Playlist(ctx context.Context, u string, max int) ([]radio.Song, error) {
	if max <= 0 {
		max = DefaultPlaylistLimit
	}
	if s.list == nil {
		return nil, ErrNoResults
	}
	entries, err := s.list(ctx, u, max)
	if err != nil {
		return nil, fmt.Errorf("playlist %s: %w", u, err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyPlaylist
	}
	songs := make([]radio.Song, 0, len(entries))
	for _, e := range entries {
		songs = append(songs, candidateSong(e))
	}
	return songs, nil
}

// Rank orders hits by Jaro-Winkler similarity between the query and each
// title. Ties keep their original order.
func Rank(query string, hits []radio.Candidate) []radio.Candidate {
	q := strings.ToLower(query)
	type scored struct {
		c     radio.Candidate
		score float32
	}
	list := make([]scored, len(hits))
	for i, h := range hits {
		sc, err := edlib.StringsSimilarity(q, strings.ToLower(h.Title), edlib.JaroWinkler)
		if err != nil {
			sc = 0
		}
		list[i] = scored{c: h, score: sc}
	}
	slices.SortStableFunc(list, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})
	out := make([]radio.Candidate, len(list))
	for i, s := range list {
		out[i] = s.c
	}
	return out
}

func candidateSong(c radio.Candidate) radio.Song {
	return withThumbnail(radio.Song{
		Title:     c.Title,
		URL:       c.URL,
		ID:        c.ID,
		Keywords:  radio.ExtractKeywords(c.Title),
		Thumbnail: c.Thumbnail,
		Duration:  FormatDuration(c.EffectiveSeconds()),
	})
}

func withThumbnail(s radio.Song) radio.Song {
	if s.Thumbnail == "" {
		s.Thumbnail = ThumbnailURL(s.ID)
	}
	if len(s.Keywords) == 0 {
		s.Keywords = radio.ExtractKeywords(s.Title)
	}
	return s
}
