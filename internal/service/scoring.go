package service

import (
	"fmt"
	"math"
	"sort"

	"cultunderground-recommendation-service/internal/models"
)

// Signal weights. Explicit preferences count the most, list membership the
// least; weights accumulate when a genre shows up in several signals.
const (
	weightLikedReviewGenre = 2
	weightHistoryGenre     = 1
	weightListItemGenre    = 1
	weightPreferredGenre   = 3

	weightFavoriteDirector = 3
	weightCultFlag         = 2
	weightUndergroundFlag  = 2
	weightCommunityRating  = 1

	topGenreCount  = 5
	candidateLimit = 50
	batchSize      = 10
)

const defaultReason = "based on your preferences"

// buildAffinityMap accumulates genre weights across all of a user's signals.
func buildAffinityMap(sig *models.UserSignals) map[string]int {
	affinity := make(map[string]int)
	for _, rev := range sig.LikedReviews {
		for _, g := range rev.Movie.Genres {
			affinity[g] += weightLikedReviewGenre
		}
	}
	for _, e := range sig.ViewingHistory {
		for _, g := range e.Movie.Genres {
			affinity[g] += weightHistoryGenre
		}
	}
	for _, it := range sig.ListItems {
		for _, g := range it.Movie.Genres {
			affinity[g] += weightListItemGenre
		}
	}
	if sig.Preference != nil {
		for _, g := range sig.Preference.PreferredGenres {
			affinity[g] += weightPreferredGenre
		}
	}
	return affinity
}

// favoriteDirectors collects directors of liked reviews plus any the user
// named explicitly.
func favoriteDirectors(sig *models.UserSignals) map[string]bool {
	favs := make(map[string]bool)
	for _, rev := range sig.LikedReviews {
		if rev.Movie.Director != nil && *rev.Movie.Director != "" {
			favs[*rev.Movie.Director] = true
		}
	}
	if sig.Preference != nil {
		for _, d := range sig.Preference.FavoriteDirectors {
			if d != "" {
				favs[d] = true
			}
		}
	}
	return favs
}

// topGenres picks the n highest-weighted genres, weight descending with name
// ascending as a stable tiebreak.
func topGenres(affinity map[string]int, n int) []string {
	names := make([]string, 0, len(affinity))
	for g := range affinity {
		names = append(names, g)
	}
	sort.Slice(names, func(i, j int) bool {
		if affinity[names[i]] != affinity[names[j]] {
			return affinity[names[i]] > affinity[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// scoreMovie computes a candidate's score and its reason string. Reason
// candidates are collected in a fixed order (genre match, director, cult
// flag, underground flag, community rating) and the first one wins; this
// mirrors the product's long-standing behavior and must not be reordered.
func scoreMovie(
	m models.Movie,
	affinity map[string]int,
	topSet map[string]bool,
	favDirectors map[string]bool,
	pref *models.UserPreference,
) (float64, string) {
	var score float64
	var reasons []string

	for _, g := range m.Genres {
		w, ok := affinity[g]
		if !ok {
			continue
		}
		score += float64(w)
		if topSet[g] && w > 1 {
			reasons = append(reasons, fmt.Sprintf("matches your interest in %s movies", g))
		}
	}

	if m.Director != nil && favDirectors[*m.Director] {
		score += weightFavoriteDirector
		reasons = append(reasons, fmt.Sprintf("from director you like, %s", *m.Director))
	}

	if pref != nil {
		if m.IsCult && containsGenre(pref.PreferredGenres, "Cult") {
			score += weightCultFlag
			reasons = append(reasons, "it's a cult movie")
		}
		if m.IsUnderground && containsGenre(pref.PreferredGenres, "Underground") {
			score += weightUndergroundFlag
			reasons = append(reasons, "it's an underground movie")
		}
	}

	if m.AvgRating > 4 {
		score += weightCommunityRating
		reasons = append(reasons, "highly rated by the community")
	}

	reason := defaultReason
	if len(reasons) > 0 {
		reason = reasons[0]
	}
	return score, reason
}

func containsGenre(genres []string, name string) bool {
	for _, g := range genres {
		if g == name {
			return true
		}
	}
	return false
}

// displayRating maps a raw score onto the 3.0-5.0 band shown in the UI.
// The transform flattens strong and weak scores alike once the rounding
// leaves the band; kept as-is because the rendered ratings are user-visible.
func displayRating(score float64) float64 {
	r := math.Round(score*5) / 10
	if r < 3 {
		r = 3
	}
	if r > 5 {
		r = 5
	}
	return r
}
