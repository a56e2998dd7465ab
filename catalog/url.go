package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	videoIDRegex   = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)
	plainIDRegex   = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	youtubeHostSet = []string{"youtube.com", "youtu.be", "music.youtube.com", "m.youtube.com", "www.youtube.com"}
)

// ExtractVideoID returns the 11-character YouTube id in u, or "".
func ExtractVideoID(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if plainIDRegex.MatchString(u) {
		return u
	}

	if parsed, err := url.Parse(u); err == nil && parsed.Host != "" {
		if v := parsed.Query().Get("v"); plainIDRegex.MatchString(v) {
			return v
		}
		host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
		path := strings.Trim(parsed.Path, "/")
		switch {
		case host == "youtu.be":
			if id, _, _ := strings.Cut(path, "/"); plainIDRegex.MatchString(id) {
				return id
			}
		case strings.HasPrefix(path, "shorts/"), strings.HasPrefix(path, "embed/"), strings.HasPrefix(path, "live/"):
			_, rest, _ := strings.Cut(path, "/")
			if id, _, _ := strings.Cut(rest, "/"); plainIDRegex.MatchString(id) {
				return id
			}
		}
	}

	if m := videoIDRegex.FindStringSubmatch(u); len(m) > 1 {
		return m[1]
	}
	return ""
}

// IsURL reports whether s looks like an http(s) link.
func IsURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsYouTubeURL reports whether u points at a YouTube host.
func IsYouTubeURL(u string) bool {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, h := range youtubeHostSet {
		if host == h {
			return true
		}
	}
	return false
}

// IsPlaylistURL reports whether u is a playlist link rather than a single video.
// Watch links that also carry a list parameter count as single videos.
func IsPlaylistURL(u string) bool {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || parsed.Host == "" {
		return false
	}
	q := parsed.Query()
	if q.Get("list") == "" {
		return false
	}
	return strings.Trim(parsed.Path, "/") == "playlist" || q.Get("v") == ""
}

// WatchURL builds the canonical watch link for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ThumbnailURL builds the high-quality thumbnail link for id.
func ThumbnailURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

// ParseDuration parses "3:20" or "1:05:20" into seconds. Anything else is 0.
func ParseDuration(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// FormatDuration renders seconds as "m:ss" or "h:mm:ss"; 0 renders as "".
func FormatDuration(secs int) string {
	if secs <= 0 {
		return ""
	}
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
