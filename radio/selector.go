package radio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leeineian/smartradio/sys"
)

const defaultSelectionWidth = 5

// Decision describes one SelectNext call.
type Decision struct {
	Seed     string
	Stage    string
	Pool     int
	Filtered int
	Diverse  bool
	Picked   string
	At       time.Time
}

// Found reports whether the decision produced a song.
func (d Decision) Found() bool {
	return d.Picked != ""
}

// Selector picks the next song when a queue drains with autoplay on.
type Selector struct {
	source  func(ctx context.Context, seed SeedContext) (string, []Candidate)
	rng     RandSource
	width   int
	observe func(Decision)
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithSelectionWidth sets how many top candidates the random pick draws from.
func WithSelectionWidth(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.width = n
		}
	}
}

// WithObserver receives every decision, found or not.
func WithObserver(fn func(Decision)) SelectorOption {
	return func(s *Selector) { s.observe = fn }
}

// NewSelector builds a selector on top of a sourcer.
func NewSelector(sourcer *Sourcer, rng RandSource, opts ...SelectorOption) *Selector {
	return newSelector(sourcer.Source, rng, opts...)
}

func newSelector(source func(context.Context, SeedContext) (string, []Candidate), rng RandSource, opts ...SelectorOption) *Selector {
	s := &Selector{source: source, rng: rng, width: defaultSelectionWidth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectNext returns a song related to last that is not in history, or false
// when every stage came up empty after filtering. The caller must not retry
// in the same tick.
func (s *Selector) SelectNext(ctx context.Context, last Song, history *History) (Song, bool) {
	seed := NewSeedContext(last.Title)
	d := Decision{Seed: last.Title, At: time.Now()}
	defer func() {
		if s.observe != nil {
			s.observe(d)
		}
	}()

	stage, pool := s.source(ctx, seed)
	d.Stage, d.Pool = stage, len(pool)

	filtered := Filter(pool, history, last.Title)
	d.Filtered = len(filtered)
	if len(filtered) == 0 || ctx.Err() != nil {
		sys.LogRadioDebug("No candidates for %q (stage %q, pool %d)", last.Title, stage, len(pool))
		return Song{}, false
	}

	partition, diverse := preferOtherArtists(filtered, seed.Parsed.Artist)
	d.Diverse = diverse
	if len(partition) > s.width {
		partition = partition[:s.width]
	}
	pick := partition[s.rng.IntN(len(partition))]
	d.Picked = pick.Title

	return Song{
		Title:       pick.Title,
		URL:         pick.URL,
		ID:          pick.ID,
		Keywords:    ExtractKeywords(pick.Title),
		Thumbnail:   pick.Thumbnail,
		Duration:    formatSeconds(pick.EffectiveSeconds()),
		RequestedBy: AutoplayAttribution,
	}, true
}

// preferOtherArtists returns the candidates by a different, non-trivial artist
// when there are any, otherwise the full list.
func preferOtherArtists(candidates []Candidate, lastArtist string) ([]Candidate, bool) {
	last := strings.ToLower(lastArtist)
	var other []Candidate
	for _, c := range candidates {
		artist := strings.ToLower(ParseTitle(c.Title).Artist)
		if artist != last && runeLen(artist) > 1 {
			other = append(other, c)
		}
	}
	if len(other) > 0 {
		return other, true
	}
	return candidates, false
}

func formatSeconds(secs int) string {
	if secs <= 0 {
		return ""
	}
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
