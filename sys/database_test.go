package sys

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(CloseDatabase)
}

func TestBotConfig(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()

	v, err := GetBotConfig(ctx, "command_hash")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, SetBotConfig(ctx, "command_hash", "abc"))
	require.NoError(t, SetBotConfig(ctx, "command_hash", "def"))
	v, err = GetBotConfig(ctx, "command_hash")
	require.NoError(t, err)
	assert.Equal(t, "def", v)
}

func TestGuildAutoplay(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	guild := snowflake.ID(123456789012345678)

	_, ok, err := GetGuildAutoplay(ctx, guild)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetGuildAutoplay(ctx, guild, false))
	on, ok, err := GetGuildAutoplay(ctx, guild)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, on)
}

func TestLookupCache(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	c := NewLookupCache(nil)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetLookup(ctx, "lastfm:a", `{"x":1}`, time.Hour))
	require.NoError(t, c.SetLookup(ctx, "lastfm:b", `{"x":2}`, time.Minute))
	require.NoError(t, c.SetLookup(ctx, "lastfm:c", "skip", 0))

	v, ok, err := c.GetLookup(ctx, "lastfm:a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"x":1}`, v)

	_, ok, err = c.GetLookup(ctx, "lastfm:c")
	require.NoError(t, err)
	assert.False(t, ok, "zero ttl is not stored")

	now = now.Add(10 * time.Minute)
	_, ok, err = c.GetLookup(ctx, "lastfm:b")
	require.NoError(t, err)
	assert.False(t, ok, "expired")

	n, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
