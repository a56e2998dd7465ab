package home

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

const (
	ansiReset    = "\u001b[0m"
	ansiPink     = "\u001b[35m"
	ansiPinkBold = "\u001b[35;1m"
)

func init() {
	adminPerm := discord.PermissionAdministrator
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "radio",
		Description:              "Smart Radio diagnostics",
		Contexts:                 guildOnly(),
		DefaultMemberPermissions: omit.New(&adminPerm),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "status",
				Description: "Show active sessions, caches and the last radio decision",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "presence",
				Description: "Show or hide the rotating bot presence",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionBool{
						Name:        "visible",
						Description: "Whether the presence rotates",
						Required:    true,
					},
				},
			},
		},
	}, handleRadio)
}

func handleRadio(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}
	switch *data.SubCommandName {
	case "status":
		handleRadioStatus(event)
	case "presence":
		handleRadioPresence(event)
	}
}

func handleRadioPresence(event *events.ApplicationCommandInteractionCreate) {
	visible := event.SlashCommandInteractionData().Bool("visible")
	if err := sys.SetBotConfig(context.Background(), configKeyPresence, strconv.FormatBool(visible)); err != nil {
		_ = event.CreateMessage(replyText(fmt.Sprintf("Failed to save setting: %v", err), true))
		return
	}
	updatePresence(context.Background(), event.Client())

	state := "hidden"
	if visible {
		state = "visible"
	}
	_ = event.CreateMessage(replyText("Presence is now **"+state+"**.", true))
}

func handleRadioStatus(event *events.ApplicationCommandInteractionCreate) {
	vm := proc.GetVoiceManager()
	if vm == nil {
		_ = event.CreateMessage(replyText(sys.ErrVoiceNothingPlaying, true))
		return
	}

	lookups, err := sys.NewLookupCache(nil).Count(context.Background())
	if err != nil {
		sys.LogDebug("Failed to count lookups: %v", err)
	}
	queries := 0
	if musicCatalog != nil {
		queries = musicCatalog.CacheLen()
	}

	text := renderRadioStatus(vm.Sessions(), vm.LastDecision(), lookups, queries, time.Now())
	_ = event.CreateMessage(panelMessage(
		discord.NewContainer(discord.NewTextDisplay(text)).WithAccentColor(panelColor), true))
}

func statusKey(text string) string {
	return fmt.Sprintf("%s> %s:%s", ansiPink, text, ansiReset)
}

func statusVal(text string) string {
	return fmt.Sprintf("%s%s%s", ansiPinkBold, text, ansiReset)
}

func renderRadioStatus(sessions []*proc.Session, last radio.Decision, lookups, queries int, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("```ansi\n")
	fmt.Fprintf(&sb, "%s %s\n", statusKey("Sessions"), statusVal(fmt.Sprint(len(sessions))))
	for _, s := range sessions {
		snap := s.Queue.Snapshot()
		current := "idle"
		if snap.Current != nil {
			current = sys.Truncate(snap.Current.Title, 40)
		}
		fmt.Fprintf(&sb, "  %s %s | queue %d | history %d | radio %t | loop %s\n",
			s.GuildID, current, len(snap.Upcoming), snap.Played, snap.Autoplay, snap.Loop)
	}
	fmt.Fprintf(&sb, "%s %s\n", statusKey("Cached lookups"), statusVal(fmt.Sprint(lookups)))
	fmt.Fprintf(&sb, "%s %s\n", statusKey("Cached searches"), statusVal(fmt.Sprint(queries)))

	sb.WriteString("\n")
	if last.At.IsZero() {
		fmt.Fprintf(&sb, "%s %s\n", statusKey("Last decision"), statusVal("none yet"))
	} else {
		outcome := "nothing new"
		if last.Found() {
			outcome = sys.Truncate(last.Picked, 40)
		}
		fmt.Fprintf(&sb, "%s %s ago\n", statusKey("Last decision"), statusVal(now.Sub(last.At).Truncate(time.Second).String()))
		fmt.Fprintf(&sb, "%s %s\n", statusKey("Seed"), statusVal(sys.Truncate(last.Seed, 40)))
		fmt.Fprintf(&sb, "%s %s (pool %d, %d after filter, other artist %t)\n",
			statusKey("Stage"), statusVal(orNone(last.Stage)), last.Pool, last.Filtered, last.Diverse)
		fmt.Fprintf(&sb, "%s %s\n", statusKey("Picked"), statusVal(outcome))
	}
	sb.WriteString("```")
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
