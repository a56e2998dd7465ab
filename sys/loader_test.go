package sys

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateCommandHash(t *testing.T) {
	a := []discord.ApplicationCommandCreate{discord.SlashCommandCreate{Name: "play", Description: "Play a song"}}
	b := []discord.ApplicationCommandCreate{discord.SlashCommandCreate{Name: "play", Description: "Play a song"}}
	c := []discord.ApplicationCommandCreate{discord.SlashCommandCreate{Name: "skip", Description: "Skip"}}

	assert.Len(t, calculateCommandHash(a), 64)
	assert.Equal(t, calculateCommandHash(a), calculateCommandHash(b))
	assert.NotEqual(t, calculateCommandHash(a), calculateCommandHash(c))
}

func TestMatchComponent(t *testing.T) {
	var hit string
	RegisterComponentHandler("test:exact", func(*events.ComponentInteractionCreate) { hit = "exact" })
	RegisterComponentHandler("testprefix:", func(*events.ComponentInteractionCreate) { hit = "prefix" })
	t.Cleanup(func() {
		delete(componentHandlers, "test:exact")
		delete(componentHandlers, "testprefix:")
	})

	h, ok := matchComponent("test:exact")
	require.True(t, ok)
	h(nil)
	assert.Equal(t, "exact", hit)

	h, ok = matchComponent("testprefix:123")
	require.True(t, ok)
	h(nil)
	assert.Equal(t, "prefix", hit)

	_, ok = matchComponent("test:other")
	assert.False(t, ok)
}
