package radio

import (
	"regexp"
	"strings"
)

var (
	liveRegex    = regexp.MustCompile(`(?i)\b(live|concert|tour|stage|performance)\b`)
	remixRegex   = regexp.MustCompile(`(?i)\b(remix|mix|mashup|cover|acoustic|instrumental)\b`)
	versionRegex = regexp.MustCompile(`(?i)\b(remaster|version|edit|extended|radio|official)\b`)

	metadataBlockRegex = regexp.MustCompile(`[\(\[\{].*?[\)\]\}]`)
	noiseWordRegex     = regexp.MustCompile(`(?i)\b(official|video|audio|lyrics|music|hq|hd|4k|mv|clip)\b`)
	spaceRegex         = regexp.MustCompile(`\s+`)
	dashSplitRegex     = regexp.MustCompile(` [-–—] `)
	leadingDashRegex   = regexp.MustCompile(`^[-–—]+\s*`)
)

// ParsedTitle is the structured view of a free-text track title.
type ParsedTitle struct {
	Artist    string
	Song      string
	IsLive    bool
	IsRemix   bool
	IsVersion bool
}

// ParseTitle splits a video title into artist and song. It never fails;
// titles without a recognizable separator come back with an empty artist
// unless they have more than two words.
func ParseTitle(title string) ParsedTitle {
	p := ParsedTitle{
		IsLive:    liveRegex.MatchString(title),
		IsRemix:   remixRegex.MatchString(title),
		IsVersion: versionRegex.MatchString(title),
	}

	stripped := stripNoise(title)
	clean := strings.TrimSpace(spaceRegex.ReplaceAllString(stripped, " "))
	if clean == "" {
		// Titles made only of noise words keep their raw text as the song.
		clean = strings.TrimSpace(spaceRegex.ReplaceAllString(title, " "))
		stripped = clean
	}

	if parts := dashSplitRegex.Split(clean, -1); len(parts) > 1 {
		p.Artist = strings.TrimSpace(parts[0])
		p.Song = stripLeadingDash(strings.Join(parts[1:], " - "))
		return p
	}

	if parts := strings.Split(clean, ": "); len(parts) > 1 {
		p.Artist = strings.TrimSpace(parts[0])
		p.Song = stripLeadingDash(strings.Join(parts[1:], ": "))
		return p
	}

	p.Song = clean
	// Low confidence: the first word is assumed to be the artist. The gaps
	// left by removed noise words still count as words.
	if strings.Count(stripped, " ") >= 2 {
		words := strings.Fields(clean)
		p.Artist = words[0]
		p.Song = strings.Join(words[1:], " ")
	}
	return p
}

// CleanTitle removes bracketed spans and noise words like "official video".
func CleanTitle(title string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(stripNoise(title), " "))
}

func stripNoise(title string) string {
	s := metadataBlockRegex.ReplaceAllString(title, "")
	return strings.TrimSpace(noiseWordRegex.ReplaceAllString(s, ""))
}

func stripLeadingDash(s string) string {
	return strings.TrimSpace(leadingDashRegex.ReplaceAllString(strings.TrimSpace(s), ""))
}
