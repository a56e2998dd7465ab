package radio

import "strings"

const (
	minCandidateSeconds   = 90
	maxCandidateSeconds   = 480
	shortCandidateSeconds = 180
)

var titleBlacklist = []string{
	// educational
	"tutorial", "how to", "guide", "lesson", "ders", "öğren", "fonksiyon", "function",
	"programming", "coding", "javascript", "python", "react", "keywords",
	"efficiently", "combining",
	// episodic media
	"episode", "bölüm", "sezon", "fragman", "trailer", "teaser",
	"dizi müziği", "film müziği", "jenerik", "soundtrack",
	// reactions, games and reviews
	"reaction", "reacts", "tepki", "gameplay", "walkthrough", "review", "inceleme",
	"analysis", "breakdown", "explained",
	// long-form and talk
	"compilation", "full album", "playlist", "best of", "podcast", "interview",
	"röportaj", "talk", "discussion",
}

var musicIndicators = []string{
	"official", "audio", "lyrics", "music", "song", "şarkı",
	"official video", "lyric video", "music video",
}

var channelBlacklist = []string{"gaming", "tutorial", "tech", "coding", "programming"}

// Reason names the check that rejected a candidate.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonHistory    Reason = "history"
	ReasonSameSong   Reason = "same-song"
	ReasonDuration   Reason = "duration"
	ReasonBlacklist  Reason = "blacklist"
	ReasonShortNoTag Reason = "short-untagged"
	ReasonChannel    Reason = "channel"
)

// Reject runs the filter checks in order and returns the first one that fails.
func Reject(c Candidate, history *History, lastTitle string) (Reason, bool) {
	if history.Has(c.ID) {
		return ReasonHistory, true
	}
	if IsSameSong(lastTitle, c.Title) {
		return ReasonSameSong, true
	}

	secs := c.EffectiveSeconds()
	if secs < minCandidateSeconds || secs > maxCandidateSeconds {
		return ReasonDuration, true
	}

	title := strings.ToLower(c.Title)
	if containsAny(title, titleBlacklist) {
		return ReasonBlacklist, true
	}
	if secs < shortCandidateSeconds && !containsAny(title, musicIndicators) {
		return ReasonShortNoTag, true
	}
	if containsAny(strings.ToLower(c.Channel), channelBlacklist) {
		return ReasonChannel, true
	}
	return ReasonNone, false
}

// Filter keeps the candidates that pass every check, in input order.
func Filter(candidates []Candidate, history *History, lastTitle string) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, rejected := Reject(c, history, lastTitle); rejected {
			continue
		}
		out = append(out, c)
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
