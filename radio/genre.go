package radio

import (
	"cmp"
	"slices"
	"strings"
)

// FallbackGenre is returned when no taxonomy entry matches.
const FallbackGenre = "music"

var genreTaxonomy = []string{
	"rock", "hard rock", "heavy metal", "metal", "thrash metal", "death metal",
	"punk", "punk rock", "indie rock", "alternative rock", "grunge",
	"pop", "electro pop", "synth pop", "electronic", "edm", "house", "techno",
	"trance", "dubstep", "drum and bass", "dnb",
	"hip hop", "rap", "trap", "r&b", "rnb", "soul", "funk",
	"ballad", "slow", "acoustic", "classical", "jazz", "blues", "country", "folk",
	"türkü", "halk müziği", "sanat müziği", "arabesk", "fantezi", "pop türkçe",
}

func init() {
	// Longest first so "heavy metal" wins over "metal". Stable keeps the
	// declared order between equal lengths.
	slices.SortStableFunc(genreTaxonomy, func(a, b string) int {
		return cmp.Compare(len([]rune(b)), len([]rune(a)))
	})
}

// ExtractKeywords maps a title to a single genre tag. The result is never empty.
func ExtractKeywords(title string) []string {
	lower := strings.ToLower(title)
	for _, g := range genreTaxonomy {
		if strings.Contains(lower, g) {
			return []string{g}
		}
	}
	return []string{FallbackGenre}
}

// Genres returns the taxonomy in match order.
func Genres() []string {
	return slices.Clone(genreTaxonomy)
}
