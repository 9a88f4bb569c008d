package models

import "time"

// Movie is a catalog entry. The engine only ever reads these.
type Movie struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Director      *string  `json:"director"`
	ReleaseYear   int      `json:"release_year"`
	PosterURL     string   `json:"poster_url"`
	IsCult        bool     `json:"is_cult"`
	IsUnderground bool     `json:"is_underground"`
	Genres        []string `json:"genres"`
	AvgRating     float64  `json:"avg_rating"`
}

// ViewingHistoryEntry is a (user, movie, viewedAt) fact, unique per pair.
type ViewingHistoryEntry struct {
	MovieID  int
	Movie    Movie
	ViewedAt time.Time
}

// Review feeds the engine only when Rating >= 4.
type Review struct {
	MovieID   int
	Movie     Movie
	Rating    int
	CreatedAt time.Time
}

// UserPreference is the optional per-user explicit-taste record. It is the
// highest-trust signal the engine consumes.
type UserPreference struct {
	UserID            int
	PreferredGenres   []string
	DislikedGenres    []string
	FavoriteDirectors []string
	PreferredDecades  []string
}

// ListItem is one movie inside a user-curated list.
type ListItem struct {
	ListID  int
	MovieID int
	Movie   Movie
}

// UserSignals bundles everything the scoring pass reads for one user.
type UserSignals struct {
	ViewingHistory []ViewingHistoryEntry
	LikedReviews   []Review
	Preference     *UserPreference
	ListItems      []ListItem
}
