// Package proc hosts per-guild playback sessions: the queue, the idle timer,
// the audio pipeline and the loop that asks the radio for the next song.
package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/leeineian/smartradio/catalog"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

var (
	ErrNotConnected  = errors.New("not connected to voice")
	ErrNoSession     = errors.New("nothing is playing")
	ErrNotInVoice    = errors.New("you must be in the bot's voice channel")
	ErrAlreadyPaused = errors.New("already paused")
	ErrNotPaused     = errors.New("not paused")
	ErrNothingToSkip = errors.New("nothing to skip")
	ErrShuffleTooFew = errors.New("not enough songs to shuffle")

	errJoinAborted = errors.New("left while connecting")
)

const defaultRetryDelay = time.Second

// Output plays audio into one voice connection.
type Output interface {
	// Play blocks until song ended or ctx was cancelled. paused is polled
	// for every frame.
	Play(ctx context.Context, song radio.Song, paused func() bool) error
	SetStatus(ctx context.Context, status string)
	Close(ctx context.Context)
}

// Connector opens a voice connection for a guild.
type Connector func(ctx context.Context, guildID, channelID snowflake.ID) (Output, error)

// Recommender picks a follow-up song when the queue runs dry.
type Recommender interface {
	SelectNext(ctx context.Context, last radio.Song, history *radio.History) (radio.Song, bool)
}

// Notifier receives user-visible session events. Every method may be called
// from the session goroutine and must not block for long.
type Notifier interface {
	NowPlaying(s *Session, song radio.Song)
	AutoplaySearching(s *Session)
	AutoplayAdded(s *Session, song radio.Song)
	RadioStopped(s *Session)
	PlaybackFailed(s *Session, song radio.Song, err error)
	IdleDisconnect(s *Session)
}

type nopNotifier struct{}

func (nopNotifier) NowPlaying(*Session, radio.Song) {}
func (nopNotifier) AutoplaySearching(*Session) {}
func (nopNotifier) AutoplayAdded(*Session, radio.Song) {}
func (nopNotifier) RadioStopped(*Session) {}
func (nopNotifier) PlaybackFailed(*Session, radio.Song, error) {}
func (nopNotifier) IdleDisconnect(*Session) {}

// VoiceConfig wires a VoiceSystem.
type VoiceConfig struct {
	Connect     Connector
	Recommender Recommender
	Notifier    Notifier
	IdleTimeout time.Duration
	RetryDelay  time.Duration
	// AutoplayFor overrides the autoplay default of new sessions per guild.
	AutoplayFor func(guildID snowflake.ID) (bool, bool)
}

// VoiceSystem is the registry of live sessions, one per guild.
type VoiceSystem struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*Session
	pending  map[snowflake.ID]*pendingJoin
	cfg      VoiceConfig

	decisionMu   sync.Mutex
	lastDecision radio.Decision
}

// pendingJoin marks a guild whose voice handshake is in flight.
type pendingJoin struct {
	done      chan struct{}
	channelID snowflake.ID
	aborted   bool
}

var (
	voiceManager *VoiceSystem
	onceVoice    sync.Once
)

// SetupVoiceManager creates the process-wide VoiceSystem. Later calls return
// the first instance.
func SetupVoiceManager(cfg VoiceConfig) *VoiceSystem {
	onceVoice.Do(func() {
		voiceManager = NewVoiceSystem(cfg)
	})
	return voiceManager
}

// GetVoiceManager returns the instance built by SetupVoiceManager, or nil.
func GetVoiceManager() *VoiceSystem {
	return voiceManager
}

func NewVoiceSystem(cfg VoiceConfig) *VoiceSystem {
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &VoiceSystem{
		sessions: make(map[snowflake.ID]*Session),
		pending:  make(map[snowflake.ID]*pendingJoin),
		cfg:      cfg,
	}
}

// RecordDecision keeps the latest radio decision for status reporting.
func (vs *VoiceSystem) RecordDecision(d radio.Decision) {
	vs.decisionMu.Lock()
	vs.lastDecision = d
	vs.decisionMu.Unlock()
	sys.LogRadio("Radio decision for %q: stage=%q pool=%d filtered=%d diverse=%t picked=%q",
		d.Seed, d.Stage, d.Pool, d.Filtered, d.Diverse, d.Picked)
}

func (vs *VoiceSystem) LastDecision() radio.Decision {
	vs.decisionMu.Lock()
	defer vs.decisionMu.Unlock()
	return vs.lastDecision
}

// GetSession returns the live session for a guild, or nil.
func (vs *VoiceSystem) GetSession(guildID snowflake.ID) *Session {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.sessions[guildID]
}

// Sessions returns a snapshot of all live sessions.
func (vs *VoiceSystem) Sessions() []*Session {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	out := make([]*Session, 0, len(vs.sessions))
	for _, s := range vs.sessions {
		out = append(out, s)
	}
	return out
}

// isCurrent reports whether generation still names the live session of guildID.
func (vs *VoiceSystem) isCurrent(guildID snowflake.ID, generation string) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	s, ok := vs.sessions[guildID]
	return ok && s.Generation == generation
}

// Play queues songs for guildID, joining channelID first when no session exists.
// It returns the session and the queue position of the first song. A session
// started from a single song has autoplay on, one started from a playlist off.
func (vs *VoiceSystem) Play(ctx context.Context, guildID, channelID, textChannelID snowflake.ID, songs ...radio.Song) (*Session, int, error) {
	if len(songs) == 0 {
		return nil, 0, catalog.ErrNoResults
	}
	s, err := vs.join(ctx, guildID, channelID, textChannelID, len(songs) == 1)
	if err != nil {
		return nil, 0, err
	}
	for i := range songs {
		songs[i].EnsureID(catalog.ExtractVideoID)
	}
	pos := s.Queue.EnqueueMany(songs)
	s.idle.Stop()
	s.wake()
	sys.LogVoice("Queued %d song(s) in guild %s at position %d", len(songs), guildID, pos)
	return s, pos, nil
}

func (vs *VoiceSystem) join(ctx context.Context, guildID, channelID, textChannelID snowflake.ID, autoplay bool) (*Session, error) {
	var p *pendingJoin
	for p == nil {
		vs.mu.Lock()
		if s, ok := vs.sessions[guildID]; ok {
			vs.mu.Unlock()
			if s.Channel() != channelID {
				return nil, ErrNotInVoice
			}
			return s, nil
		}
		if wait, ok := vs.pending[guildID]; ok {
			vs.mu.Unlock()
			if wait.channelID != channelID {
				return nil, ErrNotInVoice
			}
			select {
			case <-wait.done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if vs.cfg.Connect == nil {
			vs.mu.Unlock()
			return nil, ErrNotConnected
		}
		p = &pendingJoin{done: make(chan struct{}), channelID: channelID}
		vs.pending[guildID] = p
		vs.mu.Unlock()
	}

	// The handshake runs unlocked; other guilds keep using the registry.
	sys.LogVoice("Joining channel %s in guild %s", channelID, guildID)
	out, err := vs.cfg.Connect(ctx, guildID, channelID)
	if err == nil && vs.cfg.AutoplayFor != nil {
		if on, ok := vs.cfg.AutoplayFor(guildID); ok {
			autoplay = on
		}
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	delete(vs.pending, guildID)
	close(p.done)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	if p.aborted {
		go out.Close(context.Background())
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, errJoinAborted)
	}

	s := newSession(vs, guildID, channelID, textChannelID, out, autoplay)
	vs.sessions[guildID] = s
	s.goroutineWg.Add(1)
	go func() {
		defer s.goroutineWg.Done()
		s.processQueue()
	}()
	return s, nil
}

// Leave tears the session of guildID down. It is a no-op when none exists.
func (vs *VoiceSystem) Leave(ctx context.Context, guildID snowflake.ID) {
	vs.mu.Lock()
	s, ok := vs.sessions[guildID]
	if ok {
		delete(vs.sessions, guildID)
	}
	if p, connecting := vs.pending[guildID]; connecting {
		p.aborted = true
	}
	vs.mu.Unlock()
	if !ok {
		return
	}
	sys.LogVoice("Leaving guild %s", guildID)
	s.stop(ctx)
}

// Shutdown tears every session down and waits for their loops to exit.
func (vs *VoiceSystem) Shutdown(ctx context.Context) {
	vs.mu.Lock()
	all := make([]*Session, 0, len(vs.sessions))
	for id, s := range vs.sessions {
		all = append(all, s)
		delete(vs.sessions, id)
	}
	for _, p := range vs.pending {
		p.aborted = true
	}
	vs.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.stop(ctx)
			s.WaitForCleanup()
		}()
	}
	wg.Wait()
}

// OnVoiceStateUpdate tears sessions down when the bot is disconnected and
// pauses playback while no human is left in the channel.
func (vs *VoiceSystem) OnVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	guildID := event.VoiceState.GuildID
	s := vs.GetSession(guildID)
	if s == nil {
		return
	}
	client := event.Client()

	if event.VoiceState.UserID == client.ID() {
		if event.VoiceState.ChannelID == nil {
			sys.LogVoice("Bot disconnected by external event in guild %s", guildID)
			vs.Leave(context.Background(), guildID)
			return
		}
		if *event.VoiceState.ChannelID != s.Channel() {
			sys.LogVoice("Bot moved to %s in guild %s", *event.VoiceState.ChannelID, guildID)
			s.setChannel(*event.VoiceState.ChannelID)
		}
		return
	}

	channelID := s.Channel()
	humans := 0
	for state := range client.Caches.VoiceStates(guildID) {
		if state.ChannelID == nil || *state.ChannelID != channelID || state.UserID == client.ID() {
			continue
		}
		if m, ok := client.Caches.Member(guildID, state.UserID); !ok || !m.User.Bot {
			humans++
		}
	}
	s.SetAutoPaused(humans == 0)
}

// Session is one guild's playback state.
type Session struct {
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
	Generation    string
	Queue         *Queue
	CreatedAt     time.Time

	channelMu sync.RWMutex
	channelID snowflake.ID

	vs  *VoiceSystem
	out Output

	cancelCtx  context.Context
	cancelFunc context.CancelFunc

	queueMu   sync.Mutex
	queueCond *sync.Cond

	stateMu       sync.Mutex
	playing       bool
	skipRequested bool
	streamCancel  context.CancelFunc
	userPaused    bool
	autoPaused    bool

	idle        *IdleTimer
	goroutineWg sync.WaitGroup
}

func newSession(vs *VoiceSystem, guildID, channelID, textChannelID snowflake.ID, out Output, autoplay bool) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		GuildID:       guildID,
		TextChannelID: textChannelID,
		Generation:    uuid.New().String(),
		Queue:         NewQueue(autoplay),
		CreatedAt:     time.Now(),
		channelID:     channelID,
		vs:            vs,
		out:           out,
		cancelCtx:     ctx,
		cancelFunc:    cancel,
	}
	s.queueCond = sync.NewCond(&s.queueMu)
	generation := s.Generation
	s.idle = NewIdleTimer(func() {
		if !vs.isCurrent(guildID, generation) {
			return
		}
		sys.LogVoice("Idle timeout in guild %s", guildID)
		vs.cfg.Notifier.IdleDisconnect(s)
		vs.Leave(context.Background(), guildID)
	})
	return s
}

func (s *Session) Channel() snowflake.ID {
	s.channelMu.RLock()
	defer s.channelMu.RUnlock()
	return s.channelID
}

func (s *Session) setChannel(id snowflake.ID) {
	s.channelMu.Lock()
	s.channelID = id
	s.channelMu.Unlock()
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.cancelCtx.Done()
}

// IsPaused reports whether audio is currently held, by a user or because
// the channel is empty.
func (s *Session) IsPaused() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.userPaused || s.autoPaused
}

// Pause holds playback until Resume.
func (s *Session) Pause() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.userPaused {
		return ErrAlreadyPaused
	}
	s.userPaused = true
	return nil
}

func (s *Session) Resume() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if !s.userPaused {
		return ErrNotPaused
	}
	s.userPaused = false
	return nil
}

// TogglePause flips the user pause and returns the new state.
func (s *Session) TogglePause() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.userPaused = !s.userPaused
	return s.userPaused
}

// SetAutoPaused holds or releases playback for an empty channel.
func (s *Session) SetAutoPaused(paused bool) {
	s.stateMu.Lock()
	changed := s.autoPaused != paused
	s.autoPaused = paused
	s.stateMu.Unlock()
	if !changed {
		return
	}
	if paused {
		sys.LogVoice("Pausing playback in guild %s (no humans)", s.GuildID)
	} else {
		sys.LogVoice("Resuming playback in guild %s", s.GuildID)
	}
}

// Skip ends the current song. The loop drops it regardless of single-loop.
func (s *Session) Skip() error {
	s.stateMu.Lock()
	if !s.playing {
		s.stateMu.Unlock()
		return ErrNothingToSkip
	}
	s.skipRequested = true
	cancel := s.streamCancel
	s.stateMu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Shuffle reorders the upcoming songs.
func (s *Session) Shuffle(rng radio.RandSource) error {
	if !s.Queue.Shuffle(rng) {
		return ErrShuffleTooFew
	}
	return nil
}

// WaitForCleanup waits for the session goroutines to exit.
func (s *Session) WaitForCleanup() {
	s.goroutineWg.Wait()
}

func (s *Session) wake() {
	s.queueMu.Lock()
	s.queueCond.Broadcast()
	s.queueMu.Unlock()
}

func (s *Session) stop(ctx context.Context) {
	s.idle.Stop()
	s.Queue.Clear()
	s.cancelFunc()
	s.stateMu.Lock()
	cancel := s.streamCancel
	s.stateMu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wake()
	if s.out != nil {
		s.out.SetStatus(ctx, "")
		s.out.Close(ctx)
	}
}

// waitHead blocks until the queue has a head or the session stops.
func (s *Session) waitHead() (radio.Song, bool) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.cancelCtx.Done():
			s.wake()
		case <-done:
		}
	}()

	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	for {
		if s.cancelCtx.Err() != nil {
			return radio.Song{}, false
		}
		if song, ok := s.Queue.Current(); ok {
			return song, true
		}
		s.queueCond.Wait()
	}
}

// processQueue plays the head, applies the loop policy, and asks the radio
// for a follow-up when the queue drains with autoplay on.
func (s *Session) processQueue() {
	notify := s.vs.cfg.Notifier
	for {
		song, ok := s.waitHead()
		if !ok {
			return
		}
		s.idle.Stop()

		s.Queue.MarkPlayed(song)
		notify.NowPlaying(s, song)
		if s.out != nil {
			s.out.SetStatus(s.cancelCtx, "🎶 "+song.Title)
		}
		sys.LogVoice("Playing %s (%s) in guild %s", song.Title, song.URL, s.GuildID)

		err := s.play(song)
		if s.cancelCtx.Err() != nil {
			return
		}

		s.stateMu.Lock()
		skipped := s.skipRequested
		s.skipRequested = false
		s.stateMu.Unlock()

		switch {
		case skipped:
			s.Queue.Skip()
		case err != nil:
			sys.LogVoiceWarn("Playback of %s failed: %v", song.URL, err)
			notify.PlaybackFailed(s, song, err)
			s.Queue.Drop()
			if !sleepCtx(s.cancelCtx, s.vs.cfg.RetryDelay) {
				return
			}
		default:
			s.Queue.Finish()
		}

		if s.Queue.Len() == 0 {
			if s.out != nil {
				s.out.SetStatus(s.cancelCtx, "")
			}
			s.afterDrain()
		}
	}
}

func (s *Session) play(song radio.Song) error {
	if s.out == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithCancel(s.cancelCtx)
	defer cancel()

	s.stateMu.Lock()
	s.playing = true
	s.streamCancel = cancel
	s.stateMu.Unlock()

	err := s.out.Play(ctx, song, s.IsPaused)

	s.stateMu.Lock()
	s.playing = false
	s.streamCancel = nil
	s.stateMu.Unlock()

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// afterDrain runs once each time the queue becomes empty.
func (s *Session) afterDrain() {
	notify := s.vs.cfg.Notifier
	last, ok := s.Queue.LastPlayed()
	if !s.Queue.Autoplay() || !ok || s.vs.cfg.Recommender == nil {
		s.idle.Reset(s.vs.cfg.IdleTimeout)
		return
	}

	notify.AutoplaySearching(s)
	generation := s.Generation
	next, found := s.vs.cfg.Recommender.SelectNext(s.cancelCtx, last, s.Queue.History())
	if !s.vs.isCurrent(s.GuildID, generation) {
		sys.LogRadioDebug("Dropping autoplay result for stale session in guild %s", s.GuildID)
		return
	}
	if s.Queue.Len() > 0 {
		sys.LogRadioDebug("Queue refilled while searching in guild %s, dropping autoplay result", s.GuildID)
		return
	}
	if !found {
		notify.RadioStopped(s)
		s.idle.Reset(s.vs.cfg.IdleTimeout)
		return
	}
	next.EnsureID(catalog.ExtractVideoID)
	if !s.Queue.EnqueueIfEmpty(next) {
		return
	}
	s.Queue.MarkPlayed(next)
	notify.AutoplayAdded(s, next)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
