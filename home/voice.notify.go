package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

const notifyBacklog = 64

var _ proc.Notifier = (*ChannelNotifier)(nil)

type channelPost struct {
	channelID snowflake.ID
	msg       discord.MessageCreate
}

// ChannelNotifier posts session events to the text channel the session was
// started from. Posts go out in order on a single worker so the voice loop
// never waits on Discord.
type ChannelNotifier struct {
	client *bot.Client
	posts  chan channelPost
}

// NewNotifier starts the posting worker. It exits when ctx is done.
func NewNotifier(ctx context.Context, client *bot.Client) *ChannelNotifier {
	n := &ChannelNotifier{
		client: client,
		posts:  make(chan channelPost, notifyBacklog),
	}
	go n.run(ctx)
	return n
}

func (n *ChannelNotifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-n.posts:
			if _, err := n.client.Rest.CreateMessage(p.channelID, p.msg); err != nil {
				sys.LogVoice(sys.MsgVoiceNotifyFail, p.channelID, err)
			}
		}
	}
}

func (n *ChannelNotifier) post(s *proc.Session, msg discord.MessageCreate) {
	if s.TextChannelID == 0 {
		return
	}
	select {
	case n.posts <- channelPost{channelID: s.TextChannelID, msg: msg}:
	default:
		sys.LogWarn("Notification backlog full, dropping message for guild %s", s.GuildID)
	}
}

func (n *ChannelNotifier) NowPlaying(s *proc.Session, song radio.Song) {
	n.post(s, panelMessage(nowPlayingPanel(song, s.Queue.Snapshot(), s.IsPaused()), false))
}

func (n *ChannelNotifier) AutoplaySearching(s *proc.Session) {
	n.post(s, replyText("📻 "+sys.MsgVoiceAutoplaySearching, false))
}

func (n *ChannelNotifier) AutoplayAdded(s *proc.Session, song radio.Song) {
	n.post(s, replyText("📻 "+fmt.Sprintf(sys.MsgVoiceAutoplayAdded, song.Title), false))
}

func (n *ChannelNotifier) RadioStopped(s *proc.Session) {
	n.post(s, replyText("📻 "+sys.MsgVoiceRadioStopped, false))
}

func (n *ChannelNotifier) PlaybackFailed(s *proc.Session, song radio.Song, err error) {
	sys.LogVoice("Playback of %s failed in guild %s: %v", song.Title, s.GuildID, err)
	n.post(s, replyText("⚠️ "+fmt.Sprintf(sys.MsgVoicePlaybackFailed, song.Title), false))
}

func (n *ChannelNotifier) IdleDisconnect(s *proc.Session) {
	n.post(s, replyText("👋 "+sys.MsgVoiceIdleLeave, false))
}
