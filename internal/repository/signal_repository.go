package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"cultunderground-recommendation-service/internal/apperr"
	"cultunderground-recommendation-service/internal/models"
)

// signalLimit bounds how much recent history feeds one scoring pass.
const signalLimit = 10

// movieColumns is the shared projection for joined catalog data. Genres come
// back name-sorted so scoring iterates them in a stable order.
const movieColumns = `
	m.id, m.title, m.director, m.release_year, m.poster_url, m.is_cult, m.is_underground,
	COALESCE((
		SELECT array_agg(g.name ORDER BY g.name)
		FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
		WHERE mg.movie_id = m.id
	), '{}')`

// SignalRepository reads the behavioral and explicit signals the engine
// scores against: viewing history, liked reviews, preferences, list items.
type SignalRepository struct {
	db *sql.DB
}

func NewSignalRepository(db *sql.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// UserExists reports whether the user row is present.
func (r *SignalRepository) UserExists(userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("check user exists", err)
	}
	return exists, nil
}

// FindUserSignals loads everything one generation pass needs for a user.
func (r *SignalRepository) FindUserSignals(userID int) (*models.UserSignals, error) {
	history, err := r.findViewingHistory(userID)
	if err != nil {
		return nil, err
	}
	reviews, err := r.findLikedReviews(userID)
	if err != nil {
		return nil, err
	}
	pref, err := r.findPreference(userID)
	if err != nil {
		return nil, err
	}
	items, err := r.findListItems(userID)
	if err != nil {
		return nil, err
	}
	return &models.UserSignals{
		ViewingHistory: history,
		LikedReviews:   reviews,
		Preference:     pref,
		ListItems:      items,
	}, nil
}

func (r *SignalRepository) findViewingHistory(userID int) ([]models.ViewingHistoryEntry, error) {
	rows, err := r.db.Query(`
		SELECT vh.viewed_at, `+movieColumns+`
		FROM viewing_history vh
		JOIN movies m ON m.id = vh.movie_id
		WHERE vh.user_id = $1
		ORDER BY vh.viewed_at DESC
		LIMIT $2
	`, userID, signalLimit)
	if err != nil {
		return nil, apperr.Storage("query viewing history", err)
	}
	defer rows.Close()

	var entries []models.ViewingHistoryEntry
	for rows.Next() {
		var e models.ViewingHistoryEntry
		if err := rows.Scan(
			&e.ViewedAt,
			&e.Movie.ID, &e.Movie.Title, &e.Movie.Director, &e.Movie.ReleaseYear,
			&e.Movie.PosterURL, &e.Movie.IsCult, &e.Movie.IsUnderground,
			pq.Array(&e.Movie.Genres),
		); err != nil {
			return nil, apperr.Storage("scan viewing history", err)
		}
		e.MovieID = e.Movie.ID
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate viewing history", err)
	}
	return entries, nil
}

func (r *SignalRepository) findLikedReviews(userID int) ([]models.Review, error) {
	rows, err := r.db.Query(`
		SELECT rv.rating, rv.created_at, `+movieColumns+`
		FROM reviews rv
		JOIN movies m ON m.id = rv.movie_id
		WHERE rv.user_id = $1 AND rv.rating >= 4
		ORDER BY rv.created_at DESC
		LIMIT $2
	`, userID, signalLimit)
	if err != nil {
		return nil, apperr.Storage("query liked reviews", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(
			&rev.Rating, &rev.CreatedAt,
			&rev.Movie.ID, &rev.Movie.Title, &rev.Movie.Director, &rev.Movie.ReleaseYear,
			&rev.Movie.PosterURL, &rev.Movie.IsCult, &rev.Movie.IsUnderground,
			pq.Array(&rev.Movie.Genres),
		); err != nil {
			return nil, apperr.Storage("scan liked review", err)
		}
		rev.MovieID = rev.Movie.ID
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate liked reviews", err)
	}
	return reviews, nil
}

func (r *SignalRepository) findPreference(userID int) (*models.UserPreference, error) {
	var pref models.UserPreference
	err := r.db.QueryRow(`
		SELECT user_id, preferred_genres, disliked_genres, favorite_directors, preferred_decades
		FROM user_preferences
		WHERE user_id = $1
	`, userID).Scan(
		&pref.UserID,
		pq.Array(&pref.PreferredGenres),
		pq.Array(&pref.DislikedGenres),
		pq.Array(&pref.FavoriteDirectors),
		pq.Array(&pref.PreferredDecades),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("query user preference", err)
	}
	return &pref, nil
}

func (r *SignalRepository) findListItems(userID int) ([]models.ListItem, error) {
	rows, err := r.db.Query(`
		SELECT li.list_id, `+movieColumns+`
		FROM movie_list_items li
		JOIN movie_lists l ON l.id = li.list_id
		JOIN movies m ON m.id = li.movie_id
		WHERE l.user_id = $1
		ORDER BY li.list_id, li.position
	`, userID)
	if err != nil {
		return nil, apperr.Storage("query list items", err)
	}
	defer rows.Close()

	var items []models.ListItem
	for rows.Next() {
		var it models.ListItem
		if err := rows.Scan(
			&it.ListID,
			&it.Movie.ID, &it.Movie.Title, &it.Movie.Director, &it.Movie.ReleaseYear,
			&it.Movie.PosterURL, &it.Movie.IsCult, &it.Movie.IsUnderground,
			pq.Array(&it.Movie.Genres),
		); err != nil {
			return nil, apperr.Storage("scan list item", err)
		}
		it.MovieID = it.Movie.ID
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate list items", err)
	}
	return items, nil
}
