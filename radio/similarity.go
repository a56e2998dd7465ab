package radio

import (
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	sameArtistThreshold = 0.7
	sameSongThreshold   = 0.6
)

// Similarity returns the word-overlap ratio of a and b in [0, 1].
// Words of two characters or fewer are ignored. Each word of a counts once
// per occurrence if it appears anywhere in b, so the ratio is not strictly
// symmetric when a repeats words.
func Similarity(a, b string) float64 {
	wa, wb := significantWords(a), significantWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	common := 0
	for _, w := range wa {
		if slices.Contains(wb, w) {
			common++
		}
	}
	return float64(common) / float64(max(len(wa), len(wb)))
}

func significantWords(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// IsSameSong reports whether two titles name the same track, ignoring
// bracketed version info such as "(Live)" or "(Remix)".
func IsSameSong(a, b string) bool {
	if ta := strings.TrimSpace(a); ta != "" && strings.EqualFold(ta, strings.TrimSpace(b)) {
		return true
	}
	pa, pb := ParseTitle(a), ParseTitle(b)
	artistSim := Similarity(strings.ToLower(pa.Artist), strings.ToLower(pb.Artist))
	songSim := Similarity(strings.ToLower(pa.Song), strings.ToLower(pb.Song))
	return artistSim > sameArtistThreshold && songSim > sameSongThreshold
}
