package home

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leeineian/smartradio/catalog"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
	"github.com/stretchr/testify/assert"
)

func testSong(title string) radio.Song {
	return radio.Song{Title: title, URL: "https://www.youtube.com/watch?v=" + title, Duration: "3:00"}
}

func TestQueueText(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		text := queueText(proc.QueueSnapshot{Loop: proc.LoopOff})
		assert.Contains(t, text, "_Empty_")
		assert.Contains(t, text, "Smart Radio: off")
		assert.NotContains(t, text, "Now Playing")
	})

	t.Run("truncates long queues", func(t *testing.T) {
		cur := testSong("current")
		snap := proc.QueueSnapshot{Current: &cur, Autoplay: true, Loop: proc.LoopQueue, Played: 4}
		for i := range 13 {
			snap.Upcoming = append(snap.Upcoming, testSong(fmt.Sprintf("s%02d", i)))
		}
		text := queueText(snap)
		assert.Contains(t, text, "[current](")
		assert.Contains(t, text, "`10.` [s09]")
		assert.NotContains(t, text, "[s10]")
		assert.Contains(t, text, "...and 3 more")
		assert.Contains(t, text, "Smart Radio: on")
		assert.Contains(t, text, "Played: 4")
	})
}

func TestNowPlayingText(t *testing.T) {
	picked := radio.Song{Title: "Daft Punk - Digital Love", RequestedBy: radio.AutoplayAttribution, Keywords: []string{"daft", "punk"}}
	snap := proc.QueueSnapshot{Upcoming: []radio.Song{testSong("a"), testSong("b")}}

	text := nowPlayingText(picked, snap, false)
	assert.True(t, strings.HasPrefix(text, "🎶"))
	assert.Contains(t, text, "**Daft Punk - Digital Love**")
	assert.Contains(t, text, "Up next: 2")
	assert.Contains(t, text, "Requested by "+radio.AutoplayAttribution)
	assert.Contains(t, text, "Picked for: daft, punk")

	paused := nowPlayingText(testSong("x"), proc.QueueSnapshot{}, true)
	assert.True(t, strings.HasPrefix(paused, "⏸️"))
	assert.Contains(t, paused, "⏱️ 3:00")
	assert.NotContains(t, paused, "Picked for")
}

func TestPlaybackError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no results", fmt.Errorf("resolve: %w", catalog.ErrNoResults), sys.ErrVoiceNoResults},
		{"empty playlist", catalog.ErrEmptyPlaylist, sys.ErrVoiceEmptyPlaylist},
		{"wrong channel", proc.ErrNotInVoice, sys.ErrVoiceWrongChannel},
		{"other", errors.New("boom"), "Failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, playbackError(tt.err))
		})
	}
	assert.Contains(t, playbackError(fmt.Errorf("%w: gateway", proc.ErrNotConnected)), "Failed to join")
}

func TestLoopIcon(t *testing.T) {
	assert.Equal(t, "➡️", loopIcon(proc.LoopOff))
	assert.Equal(t, "🔂", loopIcon(proc.LoopSingle))
	assert.Equal(t, "🔁", loopIcon(proc.LoopQueue))
}

func TestPickPresence(t *testing.T) {
	first := func(int) int { return 0 }

	assert.Equal(t, "", pickPresence(nil, "", first))
	assert.Equal(t, "b", pickPresence([]string{"a", "b"}, "a", first))
	assert.Equal(t, "a", pickPresence([]string{"a"}, "a", first))
}

func TestPresenceOptionsIdle(t *testing.T) {
	options := presenceOptions(nil, 90*time.Minute)
	assert.Equal(t, []string{"/play", "Uptime: 1h 30m"}, options)
}

func TestRenderRadioStatus(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no decision", func(t *testing.T) {
		text := renderRadioStatus(nil, radio.Decision{}, 3, 7, now)
		assert.Contains(t, text, "none yet")
		assert.Contains(t, text, statusVal("3"))
		assert.Contains(t, text, statusVal("7"))
	})

	t.Run("last decision", func(t *testing.T) {
		d := radio.Decision{
			Seed: "Artist - Song", Stage: radio.StageArtist, Pool: 20, Filtered: 12,
			Diverse: true, Picked: "Other - Track", At: now.Add(-42 * time.Second),
		}
		text := renderRadioStatus(nil, d, 0, 0, now)
		assert.Contains(t, text, statusVal("42s"))
		assert.Contains(t, text, "pool 20, 12 after filter, other artist true")
		assert.Contains(t, text, statusVal("Other - Track"))
	})

	t.Run("nothing picked", func(t *testing.T) {
		d := radio.Decision{Seed: "x", At: now}
		text := renderRadioStatus(nil, d, 0, 0, now)
		assert.Contains(t, text, statusVal("none"))
		assert.Contains(t, text, statusVal("nothing new"))
	})
}
