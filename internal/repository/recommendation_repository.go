package repository

import (
	"database/sql"
	"strconv"

	"github.com/lib/pq"

	"cultunderground-recommendation-service/internal/apperr"
	"cultunderground-recommendation-service/internal/models"
)

type RecommendationRepository struct {
	db *sql.DB
}

func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// ReplaceRecommendations swaps a user's batch for a new one in a single
// transaction: a crash mid-swap must never leave the user with a
// half-deleted set when a prior valid batch existed.
func (r *RecommendationRepository) ReplaceRecommendations(userID int, recs []models.Recommendation) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apperr.Storage("begin replace recommendations", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM movie_recommendations WHERE user_id = $1`, userID); err != nil {
		return apperr.Storage("delete old recommendations", err)
	}

	for _, rec := range recs {
		_, err := tx.Exec(`
			INSERT INTO movie_recommendations (user_id, movie_id, score, reason, is_viewed, created_at)
			VALUES ($1, $2, $3, $4, FALSE, NOW())
		`, userID, rec.MovieID, rec.Score, rec.Reason)
		if err != nil {
			return apperr.Storage("insert recommendation", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Storage("commit replace recommendations", err)
	}
	return nil
}

// FindRecommendations returns the user's current batch, best score first,
// with joined catalog data for formatting.
func (r *RecommendationRepository) FindRecommendations(userID int) ([]models.Recommendation, error) {
	rows, err := r.db.Query(`
		SELECT rec.id, rec.user_id, rec.movie_id, rec.score, rec.reason, rec.is_viewed, rec.created_at,
			`+movieColumns+`
		FROM movie_recommendations rec
		JOIN movies m ON m.id = rec.movie_id
		WHERE rec.user_id = $1
		ORDER BY rec.score DESC, rec.id
	`, userID)
	if err != nil {
		return nil, apperr.Storage("query recommendations", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.MovieID, &rec.Score, &rec.Reason, &rec.IsViewed, &rec.CreatedAt,
			&rec.Movie.ID, &rec.Movie.Title, &rec.Movie.Director, &rec.Movie.ReleaseYear,
			&rec.Movie.PosterURL, &rec.Movie.IsCult, &rec.Movie.IsUnderground,
			pq.Array(&rec.Movie.Genres),
		); err != nil {
			return nil, apperr.Storage("scan recommendation", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate recommendations", err)
	}
	return recs, nil
}

// UpdateRecommendationViewed flips is_viewed on one (user, movie) row.
// A missing row is reported as NotFound; the row may legitimately have been
// regenerated away since the client last fetched the batch.
func (r *RecommendationRepository) UpdateRecommendationViewed(userID, movieID int) error {
	res, err := r.db.Exec(`
		UPDATE movie_recommendations
		SET is_viewed = TRUE
		WHERE user_id = $1 AND movie_id = $2
	`, userID, movieID)
	if err != nil {
		return apperr.Storage("update recommendation viewed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage("rows affected", err)
	}
	if n == 0 {
		return apperr.NotFound("recommendation", strconv.Itoa(userID)+"/"+strconv.Itoa(movieID))
	}
	return nil
}
