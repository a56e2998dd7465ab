package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

const (
	buttonPauseResume = "music:pause_resume"
	buttonSkip        = "music:skip"
	buttonStop        = "music:stop"
	buttonQueue       = "music:queue"

	queuePageSize = 10
)

func handleMusicQueue(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}
	_ = event.CreateMessage(panelMessage(queuePanel(s.Queue.Snapshot()), true))
}

func handleMusicNowPlaying(event *events.ApplicationCommandInteractionCreate) {
	s, reason := controlSession(event.Client(), event.GuildID(), event.User().ID)
	if s == nil {
		_ = event.CreateMessage(replyText(reason, true))
		return
	}
	snap := s.Queue.Snapshot()
	if snap.Current == nil {
		_ = event.CreateMessage(replyText(sys.ErrVoiceNothingPlaying, true))
		return
	}
	_ = event.CreateMessage(panelMessage(nowPlayingPanel(*snap.Current, snap, s.IsPaused()), false))
}

func panelMessage(c discord.ContainerComponent, ephemeral bool) discord.MessageCreate {
	return discord.NewMessageCreate().
		WithIsComponentsV2(true).
		WithEphemeral(ephemeral).
		AddComponents(c)
}

func songLink(song radio.Song) string {
	title := sys.Truncate(song.Title, 90)
	if song.URL == "" {
		return "**" + title + "**"
	}
	return fmt.Sprintf("[%s](%s)", title, song.URL)
}

func nowPlayingText(song radio.Song, snap proc.QueueSnapshot, paused bool) string {
	var sb strings.Builder
	if paused {
		sb.WriteString("⏸️ **Paused**\n")
	} else {
		sb.WriteString("🎶 **Now Playing**\n")
	}
	sb.WriteString(songLink(song))
	sb.WriteString("\n")

	var meta []string
	if song.Duration != "" {
		meta = append(meta, "⏱️ "+song.Duration)
	}
	meta = append(meta, fmt.Sprintf("Up next: %d", len(snap.Upcoming)))
	if song.RequestedBy != "" {
		meta = append(meta, "Requested by "+song.RequestedBy)
	}
	sb.WriteString(strings.Join(meta, " · "))
	if len(song.Keywords) > 0 && song.IsAutoplay() {
		sb.WriteString("\n-# Picked for: " + strings.Join(song.Keywords, ", "))
	}
	return sb.String()
}

func nowPlayingPanel(song radio.Song, snap proc.QueueSnapshot, paused bool) discord.ContainerComponent {
	text := nowPlayingText(song, snap, paused)
	var body discord.ContainerSubComponent = discord.NewTextDisplay(text)
	if song.Thumbnail != "" {
		body = discord.NewSection(discord.NewTextDisplay(text)).WithAccessory(discord.NewThumbnail(song.Thumbnail))
	}
	return discord.NewContainer(body, controlRow(paused)).WithAccentColor(panelColor)
}

func controlRow(paused bool) discord.ActionRowComponent {
	pauseLabel := "⏸️ Pause"
	if paused {
		pauseLabel = "▶️ Resume"
	}
	return discord.NewActionRow(
		discord.NewButton(discord.ButtonStyleSecondary, pauseLabel, buttonPauseResume, "", 0),
		discord.NewButton(discord.ButtonStyleSecondary, "⏭️ Skip", buttonSkip, "", 0),
		discord.NewButton(discord.ButtonStyleDanger, "⏹️ Stop", buttonStop, "", 0),
		discord.NewButton(discord.ButtonStylePrimary, "📜 Queue", buttonQueue, "", 0),
	)
}

func queueText(snap proc.QueueSnapshot) string {
	var sb strings.Builder
	if snap.Current != nil {
		sb.WriteString("▶️ **Now Playing:** ")
		sb.WriteString(songLink(*snap.Current))
		sb.WriteString("\n\n")
	}

	sb.WriteString("**Queue:**\n")
	if len(snap.Upcoming) == 0 {
		sb.WriteString("_Empty_")
	}
	for i, song := range snap.Upcoming {
		if i >= queuePageSize {
			sb.WriteString(fmt.Sprintf("*...and %d more*", len(snap.Upcoming)-queuePageSize))
			break
		}
		sb.WriteString(fmt.Sprintf("`%d.` %s", i+1, songLink(song)))
		if song.Duration != "" {
			sb.WriteString(" · " + song.Duration)
		}
		sb.WriteString("\n")
	}

	autoplay := "off"
	if snap.Autoplay {
		autoplay = "on"
	}
	sb.WriteString(fmt.Sprintf("\n-# 📻 Smart Radio: %s · Loop: %s · Played: %d", autoplay, snap.Loop, snap.Played))
	return sb.String()
}

func queuePanel(snap proc.QueueSnapshot) discord.ContainerComponent {
	return discord.NewContainer(discord.NewTextDisplay(queueText(snap))).WithAccentColor(panelColor)
}
