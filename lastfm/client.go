// Package lastfm looks up related tracks through the Last.fm web API.
package lastfm

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "http://ws.audioscrobbler.com/2.0/"
	DefaultTimeout  = 5 * time.Second
	DefaultCacheTTL = 6 * time.Hour

	searchLimit = 10
)

// Cache stores raw API responses. Implementations may fail; failures are ignored.
type Cache interface {
	GetLookup(ctx context.Context, key string) (string, bool, error)
	SetLookup(ctx context.Context, key, value string, ttl time.Duration) error
}

// Config configures a Client. Zero fields take defaults.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Cache      Cache
}

// Client talks to Last.fm. It never returns errors to callers.
type Client struct {
	apiKey   string
	baseURL  string
	timeout  time.Duration
	cacheTTL time.Duration
	http     *http.Client
	cache    Cache
	limiter  *rate.Limiter
}

var _ radio.SimilarTrackService = (*Client)(nil)

// New builds a client from cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		timeout:  cfg.Timeout,
		cacheTTL: cfg.CacheTTL,
		http:     cfg.HTTPClient,
		cache:    cfg.Cache,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Similar returns up to limit tracks similar to (artist, track).
func (c *Client) Similar(ctx context.Context, artist, track string, limit int) []radio.SimilarTrack {
	if !c.Enabled() {
		return nil
	}
	params := url.Values{
		"method":      {"track.getsimilar"},
		"artist":      {artist},
		"track":       {track},
		"limit":       {strconv.Itoa(limit)},
		"autocorrect": {"1"},
	}
	body := c.get(ctx, params)
	if body == "" {
		return nil
	}

	var out []radio.SimilarTrack
	eachTrack(gjson.Get(body, "similartracks.track"), func(t gjson.Result) {
		name, artist := t.Get("name").String(), t.Get("artist.name").String()
		if name != "" && artist != "" {
			out = append(out, radio.SimilarTrack{Name: name, Artist: artist})
		}
	})
	sys.LogLastFMDebug("Similar to %s - %s: %d tracks", artist, track, len(out))
	return out
}

// SearchTrack finds the best match for a bare track name.
func (c *Client) SearchTrack(ctx context.Context, track string) (radio.SimilarTrack, bool) {
	if !c.Enabled() {
		return radio.SimilarTrack{}, false
	}
	params := url.Values{
		"method":      {"track.search"},
		"track":       {track},
		"limit":       {strconv.Itoa(searchLimit)},
		"autocorrect": {"1"},
	}
	body := c.get(ctx, params)
	if body == "" {
		return radio.SimilarTrack{}, false
	}

	var match radio.SimilarTrack
	found := false
	eachTrack(gjson.Get(body, "results.trackmatches.track"), func(t gjson.Result) {
		if found {
			return
		}
		name, artist := t.Get("name").String(), t.Get("artist").String()
		if name != "" && artist != "" {
			match, found = radio.SimilarTrack{Name: name, Artist: artist}, true
		}
	})
	return match, found
}

// get performs one API call and returns the raw body, or "" on any failure
// including an API-level error object.
func (c *Client) get(ctx context.Context, params url.Values) string {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	query := params.Encode()
	key := cacheKey(query)

	if c.cache != nil {
		if v, ok, err := c.cache.GetLookup(ctx, key); err == nil && ok {
			return v
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query, nil)
	if err != nil {
		logFailure(params, err)
		return ""
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logFailure(params, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logFailure(params, fmt.Errorf("HTTP %d", resp.StatusCode))
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		logFailure(params, err)
		return ""
	}
	body := string(raw)
	if !gjson.Valid(body) {
		logFailure(params, fmt.Errorf("invalid JSON"))
		return ""
	}
	if e := gjson.Get(body, "error"); e.Exists() {
		logFailure(params, fmt.Errorf("api error %d: %s", e.Int(), gjson.Get(body, "message").String()))
		return ""
	}

	if c.cache != nil {
		_ = c.cache.SetLookup(ctx, key, body, c.cacheTTL)
	}
	return body
}

// eachTrack visits r whether Last.fm sent an array or a single object.
func eachTrack(r gjson.Result, fn func(gjson.Result)) {
	switch {
	case r.IsArray():
		r.ForEach(func(_, v gjson.Result) bool {
			fn(v)
			return true
		})
	case r.IsObject():
		fn(r)
	}
}

func cacheKey(query string) string {
	sum := sha1.Sum([]byte(query))
	return "lastfm:" + hex.EncodeToString(sum[:])
}

func logFailure(params url.Values, err error) {
	sys.LogLastFMDebug("Last.fm %s failed: %v", params.Get("method"), err)
}
