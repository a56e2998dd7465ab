package home

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

var shuffleRand = radio.NewEntropyRand()

func handleMusicStop(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}
	sys.LogVoice("User %s (%s) stopped playback in guild %s", event.User().Username, event.User().ID, s.GuildID)
	proc.GetVoiceManager().Leave(context.Background(), s.GuildID)
	_ = event.CreateMessage(replyText("🛑 "+sys.MsgVoiceStopped, false))
}

func handleMusicSkip(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}
	if err := s.Skip(); err != nil {
		_ = event.CreateMessage(replyText(sys.ErrVoiceNothingPlaying, true))
		return
	}
	_ = event.CreateMessage(replyText("⏭️ "+sys.MsgVoiceSkipped, false))
}

func handleMusicPause(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}
	if err := s.Pause(); err != nil {
		_ = event.CreateMessage(replyText(sys.ErrVoiceAlreadyPaused, true))
		return
	}
	_ = event.CreateMessage(replyText("⏸️ "+sys.MsgVoicePaused, false))
}

func handleMusicResume(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}
	if err := s.Resume(); err != nil {
		_ = event.CreateMessage(replyText(sys.ErrVoiceNotPaused, true))
		return
	}
	_ = event.CreateMessage(replyText("▶️ "+sys.MsgVoiceResumed, false))
}

func handleMusicShuffle(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}
	if err := s.Shuffle(shuffleRand); err != nil {
		msg := err.Error()
		if errors.Is(err, proc.ErrShuffleTooFew) {
			msg = sys.ErrVoiceShuffleTooFew
		}
		_ = event.CreateMessage(replyText(msg, true))
		return
	}
	_ = event.CreateMessage(replyText("🔀 "+sys.MsgVoiceShuffled, false))
}

func handleMusicLoop(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}
	mode := s.Queue.CycleLoop()
	_ = event.CreateMessage(replyText(loopIcon(mode)+" "+fmt.Sprintf(sys.MsgVoiceLoop, mode), false))
}

func loopIcon(m proc.LoopMode) string {
	switch m {
	case proc.LoopSingle:
		return "🔂"
	case proc.LoopQueue:
		return "🔁"
	default:
		return "➡️"
	}
}
