package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/smartradio/catalog"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/sys"
)

// Accent color of every music panel.
const panelColor = 0xE74C3C

var (
	musicCatalog  *catalog.Searcher
	playlistLimit = catalog.DefaultPlaylistLimit
)

// Configure hands the command handlers their catalog.
func Configure(c *catalog.Searcher, maxPlaylist int) {
	musicCatalog = c
	if maxPlaylist > 0 {
		playlistLimit = maxPlaylist
	}
}

func guildOnly() []discord.InteractionContextType {
	return []discord.InteractionContextType{discord.InteractionContextTypeGuild}
}

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "play",
		Description: "Play a song or playlist from YouTube",
		Contexts:    guildOnly(),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:         "query",
				Description:  "Song name, video URL or playlist URL",
				Required:     true,
				Autocomplete: true,
			},
		},
	}, handleMusicPlay)
	sys.RegisterAutocompleteHandler("play", handleMusicAutocomplete)

	simple := []struct {
		name, desc string
		handler    func(event *events.ApplicationCommandInteractionCreate)
	}{
		{"skip", "Skip the current song", handleMusicSkip},
		{"stop", "Stop playback, clear the queue and leave", handleMusicStop},
		{"pause", "Pause playback", handleMusicPause},
		{"resume", "Resume playback", handleMusicResume},
		{"queue", "Show the queue", handleMusicQueue},
		{"nowplaying", "Show the current song", handleMusicNowPlaying},
		{"shuffle", "Shuffle the upcoming songs", handleMusicShuffle},
		{"loop", "Cycle loop mode: off, single, queue", handleMusicLoop},
	}
	for _, c := range simple {
		sys.RegisterCommand(discord.SlashCommandCreate{
			Name:        c.name,
			Description: c.desc,
			Contexts:    guildOnly(),
		}, c.handler)
	}

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "autoplay",
		Description: "Toggle Smart Radio for this session",
		Contexts:    guildOnly(),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionBool{
				Name:        "default",
				Description: "Also remember the new setting for future sessions in this server",
				Required:    false,
			},
		},
	}, handleMusicAutoplay)

	sys.RegisterComponentHandler(buttonPauseResume, handleButtonPauseResume)
	sys.RegisterComponentHandler(buttonSkip, handleButtonSkip)
	sys.RegisterComponentHandler(buttonStop, handleButtonStop)
	sys.RegisterComponentHandler(buttonQueue, handleButtonQueue)

	sys.RegisterVoiceStateUpdateHandler(func(event *events.GuildVoiceStateUpdate) {
		if vm := proc.GetVoiceManager(); vm != nil {
			vm.OnVoiceStateUpdate(event)
		}
	})
}
