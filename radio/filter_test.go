package radio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lastTitle = "Queen - Bohemian Rhapsody"

func candidate(id, title string, secs int) Candidate {
	return Candidate{
		ID:      id,
		Title:   title,
		URL:     "https://www.youtube.com/watch?v=" + id,
		Channel: "Some Artist",
		Seconds: secs,
	}
}

func TestReject(t *testing.T) {
	history := NewHistory("seen0000001")

	tests := []struct {
		name string
		c    Candidate
		want Reason
	}{
		{"history", candidate("seen0000001", "Muse - Uprising", 300), ReasonHistory},
		{"same song variant", candidate("a0000000001", "Queen - Bohemian Rhapsody (Live Aid 1985)", 300), ReasonSameSong},
		{"too short", candidate("a0000000002", "Muse - Uprising (Official Audio)", 89), ReasonDuration},
		{"too long", candidate("a0000000003", "Muse - Uprising", 481), ReasonDuration},
		{"unknown duration", candidate("a0000000004", "Muse - Uprising", 0), ReasonDuration},
		{"tutorial", candidate("a0000000005", "Guitar Tutorial - Uprising", 300), ReasonBlacklist},
		{"turkish trailer", candidate("a0000000006", "Dizi Fragman - 3. Bölüm", 200), ReasonBlacklist},
		{"short without music tag", candidate("a0000000007", "Muse - Uprising", 150), ReasonShortNoTag},
		{"short with lyrics tag", candidate("a0000000008", "Muse - Uprising (Lyrics)", 150), ReasonNone},
		{"boundary 90", candidate("a0000000009", "Muse - Uprising Official Audio", 90), ReasonNone},
		{"boundary 480", candidate("a0000000010", "Muse - Uprising", 480), ReasonNone},
		{"plain long enough", candidate("a0000000011", "Muse - Uprising", 180), ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, rejected := Reject(tt.c, history, lastTitle)
			assert.Equal(t, tt.want, reason)
			assert.Equal(t, tt.want != ReasonNone, rejected)
		})
	}
}

func TestReject_Channel(t *testing.T) {
	c := candidate("b0000000001", "Muse - Uprising", 300)
	c.Channel = "TechGamingHub"
	reason, rejected := Reject(c, NewHistory(), lastTitle)
	assert.True(t, rejected)
	assert.Equal(t, ReasonChannel, reason)
}

func TestReject_SecondDurationField(t *testing.T) {
	c := candidate("b0000000002", "Muse - Uprising", 0)
	c.DurationSeconds = 240
	_, rejected := Reject(c, NewHistory(), lastTitle)
	assert.False(t, rejected)
}

func TestFilter_DurationRules(t *testing.T) {
	long := candidate("c0000000001", "Muse - Uprising", 500)
	official := candidate("c0000000002", "Muse - Uprising (Official Audio)", 300)

	assert.Empty(t, Filter([]Candidate{long}, NewHistory(), lastTitle))
	assert.Equal(t, []Candidate{official}, Filter([]Candidate{official}, NewHistory(), lastTitle))
}

func TestFilter_HistoryAlwaysExcluded(t *testing.T) {
	history := NewHistory("dup00000001")
	titles := []string{"Muse - Uprising (Official Audio)", "Adele - Hello", "Radiohead - Creep (Lyrics)"}
	channels := []string{"", "Adele", "VEVO"}
	for _, title := range titles {
		for _, ch := range channels {
			for _, secs := range []int{0, 120, 200, 300, 600} {
				c := Candidate{ID: "dup00000001", Title: title, Channel: ch, Seconds: secs}
				assert.Empty(t, Filter([]Candidate{c}, history, lastTitle))
			}
		}
	}
}

func TestFilter_SubsetAndOrder(t *testing.T) {
	var pool []Candidate
	for i := range 30 {
		secs := 60 + i*20
		title := fmt.Sprintf("Artist%d - Track %d", i, i)
		if i%4 == 0 {
			title += " reaction"
		}
		pool = append(pool, candidate(fmt.Sprintf("id%09d", i), title, secs))
	}
	history := NewHistory("id000000010", "id000000011")

	out := Filter(pool, history, lastTitle)
	require.NotEmpty(t, out)

	idx := make(map[string]int, len(pool))
	for i, c := range pool {
		idx[c.ID] = i
	}
	prev := -1
	for _, c := range out {
		i, ok := idx[c.ID]
		require.True(t, ok, "filter fabricated %s", c.ID)
		assert.Equal(t, pool[i], c)
		assert.Greater(t, i, prev, "filter reordered candidates")
		prev = i
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	assert.Empty(t, Filter(nil, NewHistory(), lastTitle))
	assert.Empty(t, Filter([]Candidate{}, nil, ""))
}
