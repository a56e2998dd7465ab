package home

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/smartradio/catalog"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

const resolveTimeout = 45 * time.Second

func replyText(content string, ephemeral bool) discord.MessageCreate {
	return discord.NewMessageCreate().
		WithContent(content).
		WithEphemeral(ephemeral)
}

func userVoiceChannel(client *bot.Client, guildID, userID snowflake.ID) (snowflake.ID, bool) {
	state, ok := client.Caches.VoiceState(guildID, userID)
	if !ok || state.ChannelID == nil {
		return 0, false
	}
	return *state.ChannelID, true
}

// controlSession returns the guild's session when the user shares its voice
// channel, or a user-facing reason why not.
func controlSession(client *bot.Client, guildID *snowflake.ID, userID snowflake.ID) (*proc.Session, string) {
	if guildID == nil {
		return nil, sys.ErrVoiceGuildOnly
	}
	vm := proc.GetVoiceManager()
	if vm == nil {
		return nil, sys.ErrVoiceNothingPlaying
	}
	s := vm.GetSession(*guildID)
	if s == nil {
		return nil, sys.ErrVoiceNothingPlaying
	}
	ch, ok := userVoiceChannel(client, *guildID, userID)
	if !ok || ch != s.Channel() {
		return nil, sys.ErrVoiceWrongChannel
	}
	return s, ""
}

func handleMusicPlay(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	query, _ := data.OptString("query")

	if event.GuildID() == nil {
		_ = event.CreateMessage(replyText(sys.ErrVoiceGuildOnly, true))
		return
	}
	guildID := *event.GuildID()
	channelID, ok := userVoiceChannel(event.Client(), guildID, event.User().ID)
	if !ok {
		_ = event.CreateMessage(replyText(sys.ErrVoiceNotInChannel, true))
		return
	}
	vm := proc.GetVoiceManager()
	if vm == nil || musicCatalog == nil {
		_ = event.CreateMessage(replyText(sys.ErrVoiceNothingPlaying, true))
		return
	}
	if s := vm.GetSession(guildID); s != nil && s.Channel() != channelID {
		_ = event.CreateMessage(replyText(sys.ErrVoiceWrongChannel, true))
		return
	}

	_ = event.DeferCreateMessage(false)
	sys.LogVoice("User %s (%s) requested: %s", event.User().Username, event.User().ID, query)

	content, err := startPlayback(event, vm, guildID, channelID, query)
	if err != nil {
		content = playbackError(err)
		sys.LogVoice("Playback request failed: %v", err)
	}
	if _, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdate().WithContent(content)); err != nil {
		sys.LogVoice(sys.MsgVoiceRespondFail, err)
	}
}

func startPlayback(event *events.ApplicationCommandInteractionCreate, vm *proc.VoiceSystem, guildID, channelID snowflake.ID, query string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	var songs []radio.Song
	if catalog.IsPlaylistURL(query) {
		list, err := musicCatalog.Playlist(ctx, query, playlistLimit)
		if err != nil {
			return "", err
		}
		songs = list
	} else {
		song, err := musicCatalog.Resolve(ctx, query)
		if err != nil {
			return "", err
		}
		songs = []radio.Song{song}
	}
	for i := range songs {
		songs[i].RequestedBy = event.User().Username
	}

	_, pos, err := vm.Play(context.Background(), guildID, channelID, event.Channel().ID(), songs...)
	if err != nil {
		return "", err
	}
	if len(songs) > 1 {
		return fmt.Sprintf(sys.MsgVoiceQueuedPlaylist, len(songs)), nil
	}
	return fmt.Sprintf(sys.MsgVoiceQueued, songs[0].Title, pos+1), nil
}

func playbackError(err error) string {
	switch {
	case errors.Is(err, catalog.ErrEmptyPlaylist):
		return sys.ErrVoiceEmptyPlaylist
	case errors.Is(err, catalog.ErrNoResults):
		return sys.ErrVoiceNoResults
	case errors.Is(err, proc.ErrNotInVoice):
		return sys.ErrVoiceWrongChannel
	case errors.Is(err, proc.ErrNotConnected):
		return fmt.Sprintf(sys.MsgVoiceJoinFail, err)
	default:
		return "Failed: " + err.Error()
	}
}

func handleMusicAutocomplete(event *events.AutocompleteInteractionCreate) {
	focused := event.Data.Focused()
	if focused.Name != "query" {
		return
	}
	query := focused.String()
	if query == "" || catalog.IsURL(query) || musicCatalog == nil {
		_ = event.AutocompleteResult(nil)
		return
	}

	results := musicCatalog.Suggest(context.Background(), query)
	choices := make([]discord.AutocompleteChoice, 0, len(results))
	for _, r := range results {
		name := r.Title
		if r.Seconds > 0 {
			name = sys.TruncateWithPreserve(r.Title, 100, "", " ("+catalog.FormatDuration(r.Seconds)+")")
		} else {
			name = sys.Truncate(name, 100)
		}
		// Values are capped at 100 characters; a watch URL always fits.
		value := r.URL
		if len(value) > 100 {
			value = sys.Truncate(r.Title, 100)
		}
		choices = append(choices, discord.AutocompleteChoiceString{Name: name, Value: value})
	}
	_ = event.AutocompleteResult(choices)
}
