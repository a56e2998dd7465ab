package sys

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRadioDefaults_Empty(t *testing.T) {
	cfg := &RadioConfig{}
	setRadioDefaults(cfg)

	assert.Equal(t, 3, cfg.SimilarLimit)
	assert.Equal(t, 10, cfg.MaxSimilarTracks)
	assert.Equal(t, 20, cfg.ArtistResults)
	assert.Equal(t, 25, cfg.GenreResults)
	assert.Equal(t, 20, cfg.FallbackResults)
	assert.Equal(t, "popular music songs 2024", cfg.FallbackQuery)
	assert.Equal(t, 100*time.Millisecond, cfg.RequestDelay)
	assert.Equal(t, 5, cfg.SelectionWidth)
	assert.Equal(t, 6*time.Hour, cfg.LastFM.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.LastFM.Timeout)
	assert.Equal(t, time.Hour, cfg.Search.CacheTTL)
}

func TestLoadRadioConfig(t *testing.T) {
	t.Setenv("RADIO_FALLBACK", "lofi hip hop")
	path := filepath.Join(t.TempDir(), "radio.yaml")
	yaml := `
similar_limit: 5
fallback_query: "${RADIO_FALLBACK}"
request_delay: 250ms
selection_width: 3
lastfm:
  cache_ttl: 1h
  rate_per_sec: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadRadioConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.SimilarLimit)
	assert.Equal(t, "lofi hip hop", cfg.FallbackQuery)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestDelay)
	assert.Equal(t, 3, cfg.SelectionWidth)
	assert.Equal(t, time.Hour, cfg.LastFM.CacheTTL)
	assert.Equal(t, 2.0, cfg.LastFM.RatePerSec)
	assert.Equal(t, 25, cfg.GenreResults, "unset fields get defaults")
}

func TestLoadRadioConfig_Errors(t *testing.T) {
	_, err := LoadRadioConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("similar_limit: [oops"), 0o644))
	_, err = LoadRadioConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{Token: "t", IdleTimeout: time.Minute}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"guild ok", func(c *Config) { c.GuildID = "123456789012345678" }, false},
		{"missing token", func(c *Config) { c.Token = "" }, true},
		{"short guild", func(c *Config) { c.GuildID = "1234" }, true},
		{"non numeric guild", func(c *Config) { c.GuildID = "12345678901234567x" }, true},
		{"zero idle", func(c *Config) { c.IdleTimeout = 0 }, true},
		{"negative delay", func(c *Config) { c.Radio.RequestDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("GUILD_ID", "")
	t.Setenv("IDLE_TIMEOUT", "90s")
	t.Setenv("LASTFM_API_KEY", "key")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "x.db"))
	t.Setenv("RADIO_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "key", cfg.LastFMAPIKey)
	assert.Equal(t, 3, cfg.Radio.SimilarLimit)
	assert.Same(t, cfg, GlobalConfig)

	t.Setenv("IDLE_TIMEOUT", "soon")
	_, err = LoadConfig()
	assert.Error(t, err)
}
