package radio

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leeineian/smartradio/sys"
)

// CatalogSearcher finds playable videos for a free-text query.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// SimilarTrackService looks up tracks related to a seed track. Implementations
// return empty results instead of errors.
type SimilarTrackService interface {
	Similar(ctx context.Context, artist, track string, limit int) []SimilarTrack
	SearchTrack(ctx context.Context, track string) (SimilarTrack, bool)
}

// Stage names, in cascade order.
const (
	StageSimilarTrack = "similar-track"
	StageArtist       = "artist"
	StageGenre        = "genre"
	StageFallback     = "fallback"
)

// SeedContext is what every strategy receives about the finished song.
type SeedContext struct {
	Title  string
	Parsed ParsedTitle
	Genre  string
}

// NewSeedContext parses title once for all strategies.
func NewSeedContext(title string) SeedContext {
	return SeedContext{
		Title:  title,
		Parsed: ParseTitle(title),
		Genre:  ExtractKeywords(title)[0],
	}
}

// Strategy is one sourcing step of the cascade.
type Strategy struct {
	Name   string
	Source func(ctx context.Context, seed SeedContext) []Candidate
}

// Cascade runs strategies in order and stops at the first non-empty result.
type Cascade []Strategy

// Run returns the name of the producing stage and its candidates, or ("", nil).
func (c Cascade) Run(ctx context.Context, seed SeedContext) (string, []Candidate) {
	for _, s := range c {
		if ctx.Err() != nil {
			return "", nil
		}
		if pool := s.Source(ctx, seed); len(pool) > 0 {
			return s.Name, pool
		}
	}
	return "", nil
}

var (
	similarQuerySuffixes = []string{"official", "audio", "music video"}

	artistQueryTemplates = []func(artist, genre string) string{
		func(a, _ string) string { return a + " best songs" },
		func(a, _ string) string { return "similar to " + a },
		func(a, g string) string { return g + " like " + a },
		func(a, _ string) string { return a + " popular tracks" },
	}

	genreQueryTemplates = []func(genre string) string{
		func(g string) string { return "best " + g + " songs" },
		func(g string) string { return g + " music playlist" },
		func(g string) string { return "top " + g + " tracks" },
		func(g string) string { return "popular " + g },
	}
)

// SourcerConfig tunes the cascade. Zero fields take the defaults.
type SourcerConfig struct {
	SimilarLimit     int
	MaxSimilarTracks int
	ArtistResults    int
	GenreResults     int
	FallbackResults  int
	FallbackQuery    string
	RequestDelay     time.Duration
}

func (c SourcerConfig) withDefaults() SourcerConfig {
	if c.SimilarLimit <= 0 {
		c.SimilarLimit = 3
	}
	if c.MaxSimilarTracks <= 0 {
		c.MaxSimilarTracks = 10
	}
	if c.ArtistResults <= 0 {
		c.ArtistResults = 20
	}
	if c.GenreResults <= 0 {
		c.GenreResults = 25
	}
	if c.FallbackResults <= 0 {
		c.FallbackResults = 20
	}
	if c.FallbackQuery == "" {
		c.FallbackQuery = "popular music songs 2024"
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}
	return c
}

// Sourcer builds the raw candidate pool for one autoplay decision.
type Sourcer struct {
	catalog CatalogSearcher
	similar SimilarTrackService
	rng     RandSource
	cfg     SourcerConfig
	cascade Cascade
}

// NewSourcer wires the four stages. similar may be nil, which disables stage one.
func NewSourcer(catalog CatalogSearcher, similar SimilarTrackService, rng RandSource, cfg SourcerConfig) *Sourcer {
	s := &Sourcer{
		catalog: catalog,
		similar: similar,
		rng:     rng,
		cfg:     cfg.withDefaults(),
	}
	s.cascade = Cascade{
		{Name: StageSimilarTrack, Source: s.fromSimilarTracks},
		{Name: StageArtist, Source: s.fromArtist},
		{Name: StageGenre, Source: s.fromGenre},
		{Name: StageFallback, Source: s.fromFallback},
	}
	return s
}

// Strategies exposes the cascade in run order.
func (s *Sourcer) Strategies() Cascade {
	return s.cascade
}

// Source runs the cascade for seed.
func (s *Sourcer) Source(ctx context.Context, seed SeedContext) (string, []Candidate) {
	return s.cascade.Run(ctx, seed)
}

func (s *Sourcer) fromSimilarTracks(ctx context.Context, seed SeedContext) []Candidate {
	artist, song := seed.Parsed.Artist, seed.Parsed.Song
	if s.similar == nil || runeLen(artist) <= 2 || runeLen(song) <= 2 {
		return nil
	}

	tracks := s.similar.Similar(ctx, artist, song, s.cfg.SimilarLimit)
	if len(tracks) == 0 && runeLen(song) > 3 {
		if match, ok := s.similar.SearchTrack(ctx, song); ok {
			tracks = s.similar.Similar(ctx, match.Artist, match.Name, s.cfg.SimilarLimit)
		}
	}
	if len(tracks) > s.cfg.MaxSimilarTracks {
		tracks = tracks[:s.cfg.MaxSimilarTracks]
	}

	var pool []Candidate
	for i, t := range tracks {
		if i > 0 && !sleepCtx(ctx, s.cfg.RequestDelay) {
			break
		}
		for _, suffix := range similarQuerySuffixes {
			hits := s.search(ctx, fmt.Sprintf("%s %s %s", t.Artist, t.Name, suffix))
			if len(hits) > 0 {
				pool = append(pool, hits[0])
				break
			}
		}
	}
	return pool
}

func (s *Sourcer) fromArtist(ctx context.Context, seed SeedContext) []Candidate {
	artist := seed.Parsed.Artist
	if runeLen(artist) <= 2 {
		return nil
	}
	tmpl := artistQueryTemplates[s.rng.IntN(len(artistQueryTemplates))]
	return limit(s.search(ctx, tmpl(artist, seed.Genre)), s.cfg.ArtistResults)
}

func (s *Sourcer) fromGenre(ctx context.Context, seed SeedContext) []Candidate {
	genre := seed.Genre
	if genre == "" {
		genre = FallbackGenre
	}
	tmpl := genreQueryTemplates[s.rng.IntN(len(genreQueryTemplates))]
	return limit(s.search(ctx, tmpl(genre)), s.cfg.GenreResults)
}

func (s *Sourcer) fromFallback(ctx context.Context, _ SeedContext) []Candidate {
	return limit(s.search(ctx, s.cfg.FallbackQuery), s.cfg.FallbackResults)
}

// search swallows catalog failures; an error is the same as no results here.
func (s *Sourcer) search(ctx context.Context, query string) []Candidate {
	hits, err := s.catalog.Search(ctx, query)
	if err != nil {
		sys.LogRadioDebug("Search %q failed: %v", query, err)
		return nil
	}
	return hits
}

func limit(c []Candidate, n int) []Candidate {
	if len(c) > n {
		return c[:n]
	}
	return c
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
