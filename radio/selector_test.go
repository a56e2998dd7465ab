package radio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRand struct {
	bounds []int
}

func (r *recordingRand) IntN(n int) int {
	r.bounds = append(r.bounds, n)
	return 0
}

func staticSource(stage string, pool []Candidate) func(context.Context, SeedContext) (string, []Candidate) {
	return func(context.Context, SeedContext) (string, []Candidate) {
		return stage, pool
	}
}

var queenLast = Song{Title: "Queen - Bohemian Rhapsody", ID: "fJ9rUzIMcZQ"}

func mixedPool() []Candidate {
	return []Candidate{
		candidate("queen000001", "Queen - Killer Queen", 200),
		candidate("queen000002", "Queen - Under Pressure", 240),
		candidate("queen000003", "Queen - Somebody to Love", 300),
		candidate("other000001", "Muse - Uprising", 300),
		candidate("other000002", "Daft Punk - Get Lucky", 200),
		candidate("other000003", "Adele - Hello", 360),
		candidate("other000004", "Radiohead - Creep", 240),
		candidate("other000005", "Tarkan - Kuzu Kuzu", 220),
	}
}

func TestSelectNext_ReturnsAutoplaySong(t *testing.T) {
	pool := []Candidate{candidate("other000002", "Daft Punk - Get Lucky", 200)}
	pool[0].Thumbnail = "https://i.ytimg.com/vi/other000002/hqdefault.jpg"
	sel := newSelector(staticSource(StageArtist, pool), fixedRand(0))

	song, ok := sel.SelectNext(context.Background(), queenLast, NewHistory(queenLast.ID))
	require.True(t, ok)
	assert.Equal(t, "Daft Punk - Get Lucky", song.Title)
	assert.Equal(t, "other000002", song.ID)
	assert.Equal(t, pool[0].URL, song.URL)
	assert.Equal(t, pool[0].Thumbnail, song.Thumbnail)
	assert.Equal(t, "3:20", song.Duration)
	assert.Equal(t, []string{"punk"}, song.Keywords)
	assert.Equal(t, AutoplayAttribution, song.RequestedBy)
	assert.True(t, song.IsAutoplay())
}

func TestSelectNext_AllInHistory(t *testing.T) {
	pool := mixedPool()
	history := NewHistory()
	for _, c := range pool {
		history.Add(c.ID)
	}

	var got []Decision
	sel := newSelector(staticSource(StageGenre, pool), fixedRand(0), WithObserver(func(d Decision) { got = append(got, d) }))

	_, ok := sel.SelectNext(context.Background(), queenLast, history)
	assert.False(t, ok)
	require.Len(t, got, 1)
	assert.False(t, got[0].Found())
	assert.Equal(t, StageGenre, got[0].Stage)
	assert.Equal(t, len(pool), got[0].Pool)
	assert.Zero(t, got[0].Filtered)
}

func TestSelectNext_EmptyCascade(t *testing.T) {
	sel := newSelector(staticSource("", nil), fixedRand(0))
	_, ok := sel.SelectNext(context.Background(), queenLast, NewHistory())
	assert.False(t, ok)
}

func TestSelectNext_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sel := newSelector(staticSource(StageArtist, mixedPool()), fixedRand(0))
	_, ok := sel.SelectNext(ctx, queenLast, NewHistory())
	assert.False(t, ok)
}

func TestSelectNext_PrefersOtherArtists(t *testing.T) {
	sel := newSelector(staticSource(StageArtist, mixedPool()), NewSeededRand(42))
	for range 100 {
		song, ok := sel.SelectNext(context.Background(), queenLast, NewHistory())
		require.True(t, ok)
		assert.NotEqual(t, "Queen", ParseTitle(song.Title).Artist, song.Title)
		assert.NotContains(t, song.ID, "queen")
	}
}

func TestSelectNext_SameArtistOnly(t *testing.T) {
	pool := mixedPool()[:3]
	var d Decision
	sel := newSelector(staticSource(StageArtist, pool), fixedRand(1), WithObserver(func(got Decision) { d = got }))

	song, ok := sel.SelectNext(context.Background(), queenLast, NewHistory())
	require.True(t, ok)
	assert.Equal(t, "Queen - Under Pressure", song.Title)
	assert.False(t, d.Diverse)
}

func TestSelectNext_Width(t *testing.T) {
	var pool []Candidate
	for _, prefix := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf"} {
		pool = append(pool, hits(prefix, 1, 200)...)
	}

	tests := []struct {
		name string
		opts []SelectorOption
		want int
	}{
		{"default", nil, defaultSelectionWidth},
		{"narrow", []SelectorOption{WithSelectionWidth(2)}, 2},
		{"wider than pool", []SelectorOption{WithSelectionWidth(50)}, len(pool)},
		{"ignored non-positive", []SelectorOption{WithSelectionWidth(0)}, defaultSelectionWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := &recordingRand{}
			sel := newSelector(staticSource(StageGenre, pool), rng, tt.opts...)
			song, ok := sel.SelectNext(context.Background(), queenLast, NewHistory())
			require.True(t, ok)
			assert.Equal(t, []int{tt.want}, rng.bounds)
			assert.Equal(t, pool[0].Title, song.Title)
		})
	}
}

func TestSelectNext_NeverRepeats(t *testing.T) {
	pool := mixedPool()
	history := NewHistory(queenLast.ID)
	sel := newSelector(staticSource(StageArtist, pool), NewSeededRand(7))

	last := queenLast
	seen := map[string]bool{}
	for {
		song, ok := sel.SelectNext(context.Background(), last, history)
		if !ok {
			break
		}
		require.False(t, seen[song.ID], "repeated %s", song.ID)
		seen[song.ID] = true
		history.Add(song.ID)
		last = song
	}
	assert.Len(t, seen, len(pool))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "", formatSeconds(0))
	assert.Equal(t, "0:59", formatSeconds(59))
	assert.Equal(t, "3:20", formatSeconds(200))
	assert.Equal(t, "1:01:01", formatSeconds(3661))
}
