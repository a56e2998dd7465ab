package proc

import (
	"context"
	"net/http"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

// NewDiscordConnector returns a Connector that opens disgo voice connections.
func NewDiscordConnector(client *bot.Client, proxy string) Connector {
	return func(ctx context.Context, guildID, channelID snowflake.ID) (Output, error) {
		conn := client.VoiceManager.CreateConn(guildID)
		if err := conn.Open(ctx, channelID, false, false); err != nil {
			conn.Close(ctx)
			return nil, err
		}
		return &discordOutput{client: client, conn: conn, channelID: channelID, proxy: proxy}, nil
	}
}

type discordOutput struct {
	client    *bot.Client
	conn      voice.Conn
	channelID snowflake.ID
	proxy     string

	statusMu sync.Mutex
	status   string
}

func (o *discordOutput) Play(ctx context.Context, song radio.Song, paused func() bool) error {
	stream, err := StartStream(ctx, song.URL, o.proxy)
	if err != nil {
		return err
	}

	p := NewStreamProvider(stream.Stdout, paused)
	done := make(chan struct{})
	p.OnFinish = func() { close(done) }

	o.setOpusFrameProviderSafe(p)
	o.conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)

	select {
	case <-done:
		sys.LogVoiceDebug("Playback finished: %s (%d frames)", song.Title, p.Frames())
	case <-ctx.Done():
		sys.LogVoiceDebug("Playback stopped: %s", song.Title)
	}

	o.setOpusFrameProviderSafe(nil)
	o.conn.SetSpeaking(context.Background(), 0)
	p.Close()

	if err := stream.Close(); err != nil && ctx.Err() == nil {
		return err
	}
	if p.Frames() == 0 && ctx.Err() == nil {
		return ErrNoAudio
	}
	return nil
}

func (o *discordOutput) setOpusFrameProviderSafe(provider voice.OpusFrameProvider) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogVoiceWarn("Recovered from panic in SetOpusFrameProvider: %v", r)
		}
	}()
	o.conn.SetOpusFrameProvider(provider)
}

// SetStatus updates the voice channel status, skipping repeats.
func (o *discordOutput) SetStatus(_ context.Context, status string) {
	if len([]rune(status)) > 500 {
		status = string([]rune(status)[:500])
	}
	o.statusMu.Lock()
	if o.status == status {
		o.statusMu.Unlock()
		return
	}
	o.status = status
	o.statusMu.Unlock()

	route := rest.NewEndpoint(http.MethodPut, "/channels/"+o.channelID.String()+"/voice-status")
	if err := o.client.Rest.Do(route.Compile(nil), map[string]string{"status": status}, nil); err != nil {
		sys.LogVoiceDebug("Failed to set voice status: %v", err)
	}
}

func (o *discordOutput) Close(ctx context.Context) {
	o.setOpusFrameProviderSafe(nil)
	o.conn.Close(ctx)
}
