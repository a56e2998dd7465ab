package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Token         string
	GuildID       string
	DatabasePath  string
	LastFMAPIKey  string
	LastFMBaseURL string
	IdleTimeout   time.Duration
	YTDLPProxy    string
	LogFile       string
	Silent        bool
	Debug         bool
	Radio         RadioConfig
}

// RadioConfig tunes the autoplay engine and its lookups. It is read from the
// optional YAML file named by RADIO_CONFIG.
type RadioConfig struct {
	SimilarLimit     int           `yaml:"similar_limit"`
	MaxSimilarTracks int           `yaml:"max_similar_tracks"`
	ArtistResults    int           `yaml:"artist_results"`
	GenreResults     int           `yaml:"genre_results"`
	FallbackResults  int           `yaml:"fallback_results"`
	FallbackQuery    string        `yaml:"fallback_query"`
	RequestDelay     time.Duration `yaml:"request_delay"`
	SelectionWidth   int           `yaml:"selection_width"`
	PlaylistLimit    int           `yaml:"playlist_limit"`
	LastFM           LookupConfig  `yaml:"lastfm"`
	Search           LookupConfig  `yaml:"search"`
}

// LookupConfig paces and caches one outbound service.
type LookupConfig struct {
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
}

var GlobalConfig *Config

// LoadConfig initializes the configuration from environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, "smartradio.db")
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))
	debug, _ := strconv.ParseBool(os.Getenv("DEBUG"))

	idle := time.Duration(0)
	if v := strings.TrimSpace(os.Getenv("IDLE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IDLE_TIMEOUT %q: %w", v, err)
		}
		idle = d
	} else {
		idle = 10 * time.Minute
	}

	cfg := &Config{
		Token:         os.Getenv("DISCORD_TOKEN"),
		GuildID:       os.Getenv("GUILD_ID"),
		DatabasePath:  dbPath,
		LastFMAPIKey:  os.Getenv("LASTFM_API_KEY"),
		LastFMBaseURL: os.Getenv("LASTFM_BASE_URL"),
		IdleTimeout:   idle,
		YTDLPProxy:    os.Getenv("YTDLP_PROXY"),
		LogFile:       os.Getenv("LOG_FILE"),
		Silent:        silent,
		Debug:         debug,
	}

	if path := os.Getenv("RADIO_CONFIG"); path != "" {
		radio, err := LoadRadioConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Radio = *radio
	} else {
		setRadioDefaults(&cfg.Radio)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}
	if c.GuildID != "" {
		if len(c.GuildID) < 17 || len(c.GuildID) > 20 {
			return fmt.Errorf(MsgConfigInvalidGuildID)
		}
		if _, err := snowflake.Parse(c.GuildID); err != nil {
			return fmt.Errorf(MsgConfigInvalidGuildID)
		}
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("invalid IDLE_TIMEOUT: must be positive")
	}
	if c.Radio.RequestDelay < 0 || c.Radio.LastFM.Timeout < 0 || c.Radio.Search.Timeout < 0 {
		return fmt.Errorf("invalid radio config: durations must not be negative")
	}
	return nil
}

// LoadRadioConfig reads a YAML tuning file. ${VAR} references are expanded
// from the environment before parsing.
func LoadRadioConfig(path string) (*RadioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read radio config %s: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &RadioConfig{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse radio config %s: %w", path, err)
	}

	setRadioDefaults(cfg)
	return cfg, nil
}

func setRadioDefaults(cfg *RadioConfig) {
	if cfg.SimilarLimit == 0 {
		cfg.SimilarLimit = 3
	}
	if cfg.MaxSimilarTracks == 0 {
		cfg.MaxSimilarTracks = 10
	}
	if cfg.ArtistResults == 0 {
		cfg.ArtistResults = 20
	}
	if cfg.GenreResults == 0 {
		cfg.GenreResults = 25
	}
	if cfg.FallbackResults == 0 {
		cfg.FallbackResults = 20
	}
	if cfg.FallbackQuery == "" {
		cfg.FallbackQuery = "popular music songs 2024"
	}
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = 100 * time.Millisecond
	}
	if cfg.SelectionWidth == 0 {
		cfg.SelectionWidth = 5
	}
	if cfg.PlaylistLimit == 0 {
		cfg.PlaylistLimit = 100
	}
	if cfg.LastFM.CacheTTL == 0 {
		cfg.LastFM.CacheTTL = 6 * time.Hour
	}
	if cfg.LastFM.Timeout == 0 {
		cfg.LastFM.Timeout = 5 * time.Second
	}
	if cfg.LastFM.RatePerSec == 0 {
		cfg.LastFM.RatePerSec = 5
	}
	if cfg.Search.CacheTTL == 0 {
		cfg.Search.CacheTTL = time.Hour
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 8 * time.Second
	}
	if cfg.Search.RatePerSec == 0 {
		cfg.Search.RatePerSec = 4
	}
}
