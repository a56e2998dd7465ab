package proc

import (
	"sync"

	"github.com/leeineian/smartradio/radio"
)

// LoopMode controls what happens to a song when it finishes.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopSingle
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopSingle:
		return "single"
	case LoopQueue:
		return "queue"
	default:
		return "off"
	}
}

// Queue is the per-guild play queue. The head is the song now playing.
type Queue struct {
	mu       sync.Mutex
	songs    []radio.Song
	history  *radio.History
	loop     LoopMode
	autoplay bool
	last     *radio.Song
}

// NewQueue returns an empty queue with the given autoplay setting.
func NewQueue(autoplay bool) *Queue {
	return &Queue{history: radio.NewHistory(), autoplay: autoplay}
}

// Enqueue appends song and returns its position (0 = now playing).
func (q *Queue) Enqueue(song radio.Song) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.songs = append(q.songs, song)
	return len(q.songs) - 1
}

// EnqueueIfEmpty appends song only when nothing is queued.
func (q *Queue) EnqueueIfEmpty(song radio.Song) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) > 0 {
		return false
	}
	q.songs = append(q.songs, song)
	return true
}

// EnqueueMany appends songs and returns the position of the first one.
func (q *Queue) EnqueueMany(songs []radio.Song) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos := len(q.songs)
	q.songs = append(q.songs, songs...)
	return pos
}

// Current returns the head of the queue.
func (q *Queue) Current() (radio.Song, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) == 0 {
		return radio.Song{}, false
	}
	return q.songs[0], true
}

// Upcoming returns a copy of everything after the head.
func (q *Queue) Upcoming() []radio.Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) < 2 {
		return nil
	}
	return append([]radio.Song(nil), q.songs[1:]...)
}

// Len returns the number of songs including the head.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.songs)
}

// Finish applies the loop policy to the head after it played to the end:
// single keeps it, queue rotates it to the tail, off drops it.
// It returns the finished song.
func (q *Queue) Finish() (radio.Song, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) == 0 {
		return radio.Song{}, false
	}
	done := q.songs[0]
	q.last = &done
	switch q.loop {
	case LoopSingle:
	case LoopQueue:
		q.songs = append(q.songs[1:], done)
	default:
		q.songs = q.songs[1:]
	}
	return done, true
}

// Skip drops the head even in single-loop mode. In queue-loop mode the
// skipped song still goes to the tail.
func (q *Queue) Skip() (radio.Song, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) == 0 {
		return radio.Song{}, false
	}
	done := q.songs[0]
	q.last = &done
	if q.loop == LoopQueue {
		q.songs = append(q.songs[1:], done)
	} else {
		q.songs = q.songs[1:]
	}
	return done, true
}

// Shuffle reorders everything after the head. It needs more than two songs.
func (q *Queue) Shuffle(rng radio.RandSource) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) <= 2 {
		return false
	}
	rest := q.songs[1:]
	for i := len(rest) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		rest[i], rest[j] = rest[j], rest[i]
	}
	return true
}

// Clear empties the queue and history and turns autoplay off.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.songs = nil
	q.history.Reset()
	q.autoplay = false
}

// CycleLoop advances off -> single -> queue -> off.
func (q *Queue) CycleLoop() LoopMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loop = (q.loop + 1) % 3
	return q.loop
}

func (q *Queue) Loop() LoopMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loop
}

func (q *Queue) Autoplay() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.autoplay
}

func (q *Queue) SetAutoplay(on bool) {
	q.mu.Lock()
	q.autoplay = on
	q.mu.Unlock()
}

// ToggleAutoplay flips autoplay and returns the new value.
func (q *Queue) ToggleAutoplay() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.autoplay = !q.autoplay
	return q.autoplay
}

// MarkPlayed records song in the history. It must run no later than the
// moment the song starts playing.
func (q *Queue) MarkPlayed(song radio.Song) {
	if key := song.Key(); key != "" {
		q.history.Add(key)
	}
}

// History returns the live played-id set.
func (q *Queue) History() *radio.History {
	return q.history
}

// LastPlayed returns the most recently finished or skipped song.
func (q *Queue) LastPlayed() (radio.Song, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.last == nil {
		return radio.Song{}, false
	}
	return *q.last, true
}

// QueueSnapshot is a consistent view for rendering.
type QueueSnapshot struct {
	Current  *radio.Song
	Upcoming []radio.Song
	Loop     LoopMode
	Autoplay bool
	Played   int
}

func (q *Queue) Snapshot() QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := QueueSnapshot{Loop: q.loop, Autoplay: q.autoplay, Played: q.history.Len()}
	if len(q.songs) > 0 {
		cur := q.songs[0]
		s.Current = &cur
		s.Upcoming = append([]radio.Song(nil), q.songs[1:]...)
	}
	return s
}

// Drop removes the head regardless of the loop mode. Used when a song
// could not be played at all.
func (q *Queue) Drop() (radio.Song, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) == 0 {
		return radio.Song{}, false
	}
	done := q.songs[0]
	q.last = &done
	q.songs = q.songs[1:]
	return done, true
}
