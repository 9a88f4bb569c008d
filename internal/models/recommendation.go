package models

import "time"

// Recommendation is one persisted row of a user's batch. The full set of rows
// for a user is replaced wholesale on regeneration; at most one row exists
// per (user, movie) pair.
type Recommendation struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason"`
	IsViewed  bool      `json:"is_viewed"`
	CreatedAt time.Time `json:"created_at"`

	// Joined catalog data, populated on read.
	Movie Movie `json:"-"`
}

// RecommendedMovie is the display shape served by GET /api/recommendations.
type RecommendedMovie struct {
	MovieID     int     `json:"movie_id"`
	Title       string  `json:"title"`
	PosterURL   string  `json:"poster_url"`
	ReleaseYear int     `json:"release_year"`
	Director    *string `json:"director"`
	Rating      float64 `json:"rating"`
	Reason      string  `json:"reason"`
}
