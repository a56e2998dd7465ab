package home

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/sys"
)

func buttonSession(event *events.ComponentInteractionCreate) *proc.Session {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
	}
	return s
}

// refreshPanel redraws the now playing panel the button belongs to.
func refreshPanel(event *events.ComponentInteractionCreate, s *proc.Session) {
	snap := s.Queue.Snapshot()
	if snap.Current == nil {
		_ = event.UpdateMessage(discord.NewMessageUpdate().
			WithIsComponentsV2(true).
			WithComponents(discord.NewContainer(discord.NewTextDisplay(sys.ErrVoiceNothingPlaying)).WithAccentColor(panelColor)))
		return
	}
	_ = event.UpdateMessage(discord.NewMessageUpdate().
		WithIsComponentsV2(true).
		WithComponents(nowPlayingPanel(*snap.Current, snap, s.IsPaused())))
}

func handleButtonPauseResume(event *events.ComponentInteractionCreate) {
	s := buttonSession(event)
	if s == nil {
		return
	}
	paused := s.TogglePause()
	sys.LogVoice("User %s toggled pause (%t) in guild %s", event.User().Username, paused, s.GuildID)
	refreshPanel(event, s)
}

func handleButtonSkip(event *events.ComponentInteractionCreate) {
	s := buttonSession(event)
	if s == nil {
		return
	}
	if err := s.Skip(); err != nil {
		_ = event.CreateMessage(replyText(sys.ErrVoiceNothingPlaying, true))
		return
	}
	_ = event.CreateMessage(replyText("⏭️ "+sys.MsgVoiceSkipped, false))
}

func handleButtonStop(event *events.ComponentInteractionCreate) {
	s := buttonSession(event)
	if s == nil {
		return
	}
	sys.LogVoice("User %s (%s) stopped playback in guild %s", event.User().Username, event.User().ID, s.GuildID)
	proc.GetVoiceManager().Leave(context.Background(), s.GuildID)
	_ = event.UpdateMessage(discord.NewMessageUpdate().
		WithIsComponentsV2(true).
		WithComponents(discord.NewContainer(discord.NewTextDisplay("🛑 " + sys.MsgVoiceStopped)).WithAccentColor(panelColor)))
}

func handleButtonQueue(event *events.ComponentInteractionCreate) {
	s := buttonSession(event)
	if s == nil {
		return
	}
	_ = event.CreateMessage(panelMessage(queuePanel(s.Queue.Snapshot()), true))
}
