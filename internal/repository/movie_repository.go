package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"cultunderground-recommendation-service/internal/apperr"
	"cultunderground-recommendation-service/internal/models"
)

// MovieRepository serves the candidate pool for scoring. The catalog is
// read-only from the engine's perspective.
type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindCandidateMovies returns up to limit movies that carry at least one of
// the given genres, with full genre and community-rating data for scoring.
// Anything in excludeIDs or in the user's viewing history is left out; the
// history check runs in SQL because callers only hold the recent slice of it
// and seen movies must never come back regardless of age. Ordered by id so
// repeated generations over an unchanged catalog see the same pool.
func (r *MovieRepository) FindCandidateMovies(userID int, excludeIDs []int, genreNames []string, limit int) ([]models.Movie, error) {
	if len(genreNames) == 0 {
		return nil, nil
	}
	if excludeIDs == nil {
		excludeIDs = []int{}
	}

	rows, err := r.db.Query(`
		SELECT `+movieColumns+`,
			COALESCE((SELECT AVG(rv.rating) FROM reviews rv WHERE rv.movie_id = m.id), 0)
		FROM movies m
		WHERE NOT (m.id = ANY($1))
		  AND NOT EXISTS (
			SELECT 1 FROM viewing_history vh
			WHERE vh.user_id = $2 AND vh.movie_id = m.id
		  )
		  AND EXISTS (
			SELECT 1
			FROM movie_genres mg
			JOIN genres g ON g.id = mg.genre_id
			WHERE mg.movie_id = m.id AND g.name = ANY($3)
		  )
		ORDER BY m.id
		LIMIT $4
	`, pq.Array(excludeIDs), userID, pq.Array(genreNames), limit)
	if err != nil {
		return nil, apperr.Storage("query candidate movies", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(
			&m.ID, &m.Title, &m.Director, &m.ReleaseYear,
			&m.PosterURL, &m.IsCult, &m.IsUnderground,
			pq.Array(&m.Genres), &m.AvgRating,
		); err != nil {
			return nil, apperr.Storage("scan candidate movie", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate candidate movies", err)
	}
	return movies, nil
}
