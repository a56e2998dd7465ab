package home

import (
	"context"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/smartradio/sys"
)

func handleMusicAutoplay(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}

	enabled := s.Queue.ToggleAutoplay()
	sys.LogRadio("Autoplay %t in guild %s by %s", enabled, s.GuildID, event.User().Username)

	data := event.SlashCommandInteractionData()
	if remember, _ := data.OptBool("default"); remember {
		if err := sys.SetGuildAutoplay(context.Background(), s.GuildID, enabled); err != nil {
			sys.LogWarn("Failed to save autoplay default: %v", err)
		}
	}

	msg := sys.MsgVoiceAutoplayOff
	if enabled {
		msg = sys.MsgVoiceAutoplayOn
	}
	_ = event.CreateMessage(replyText("📻 "+msg, false))
}
