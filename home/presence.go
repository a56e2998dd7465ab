package home

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/sys"
)

const configKeyPresence = "status_visible"

var (
	lastPresence   string
	lastPresenceMu sync.Mutex
)

func init() {
	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		sys.RegisterDaemon(sys.LogInfo, func(ctx context.Context) (bool, func(), func()) {
			return startPresenceRotator(ctx, client)
		})
	})
}

func presenceInterval() time.Duration {
	return time.Duration(15+rand.IntN(46)) * time.Second
}

// startPresenceRotator always runs so the presence can be re-enabled at runtime.
func startPresenceRotator(ctx context.Context, client *bot.Client) (bool, func(), func()) {
	return true, func() {
		for {
			updatePresence(ctx, client)
			select {
			case <-time.After(presenceInterval()):
			case <-ctx.Done():
				return
			}
		}
	}, nil
}

func updatePresence(ctx context.Context, client *bot.Client) {
	if client == nil {
		return
	}

	visible, err := sys.GetBotConfig(ctx, configKeyPresence)
	if err != nil || visible == "false" {
		_ = client.SetPresence(ctx, gateway.WithOnlineStatus(discord.OnlineStatusOnline))
		return
	}

	var sessions []*proc.Session
	if vm := proc.GetVoiceManager(); vm != nil {
		sessions = vm.Sessions()
	}

	lastPresenceMu.Lock()
	selected := pickPresence(presenceOptions(sessions, time.Since(sys.StartupTime)), lastPresence, rand.IntN)
	lastPresence = selected
	lastPresenceMu.Unlock()

	if err := client.SetPresence(ctx,
		gateway.WithOnlineStatus(discord.OnlineStatusOnline),
		gateway.WithListeningActivity(selected),
	); err != nil {
		sys.LogWarn("Failed to update presence: %v", err)
		return
	}
	sys.LogDebug("Presence set to %q", selected)
}

func presenceOptions(sessions []*proc.Session, uptime time.Duration) []string {
	options := []string{"/play"}
	if len(sessions) == 0 {
		return append(options, fmt.Sprintf("Uptime: %dh %dm", int(uptime.Hours()), int(uptime.Minutes())%60))
	}

	radioOn, queued := 0, 0
	for _, s := range sessions {
		snap := s.Queue.Snapshot()
		queued += len(snap.Upcoming)
		if snap.Autoplay {
			radioOn++
		}
	}
	options = append(options, fmt.Sprintf("music in %d server(s)", len(sessions)))
	if radioOn > 0 {
		options = append(options, fmt.Sprintf("Smart Radio in %d server(s)", radioOn))
	}
	if queued > 0 {
		options = append(options, fmt.Sprintf("%d queued song(s)", queued))
	}
	return options
}

// pickPresence picks a random option other than last when there is one.
func pickPresence(options []string, last string, intn func(int) int) string {
	if len(options) == 0 {
		return ""
	}
	var choices []string
	for _, o := range options {
		if o != last {
			choices = append(choices, o)
		}
	}
	if len(choices) == 0 {
		return options[0]
	}
	return choices[intn(len(choices))]
}
