package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"cultunderground-recommendation-service/internal/config"
)

func NewPostgres(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS genres (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS movies (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			director VARCHAR(255),
			release_year INTEGER,
			poster_url TEXT NOT NULL DEFAULT '',
			is_cult BOOLEAN NOT NULL DEFAULT FALSE,
			is_underground BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS movie_genres (
			movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
			genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
			PRIMARY KEY (movie_id, genre_id)
		)`,
		`CREATE TABLE IF NOT EXISTS viewing_history (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			movie_id INTEGER NOT NULL REFERENCES movies(id),
			viewed_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, movie_id)
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			movie_id INTEGER NOT NULL REFERENCES movies(id),
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			content TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, movie_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			preferred_genres TEXT[] NOT NULL DEFAULT '{}',
			disliked_genres TEXT[] NOT NULL DEFAULT '{}',
			favorite_directors TEXT[] NOT NULL DEFAULT '{}',
			preferred_decades TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS movie_lists (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS movie_list_items (
			id SERIAL PRIMARY KEY,
			list_id INTEGER NOT NULL REFERENCES movie_lists(id) ON DELETE CASCADE,
			movie_id INTEGER NOT NULL REFERENCES movies(id),
			position INTEGER NOT NULL DEFAULT 0,
			UNIQUE(list_id, movie_id)
		)`,
		`CREATE TABLE IF NOT EXISTS movie_recommendations (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			movie_id INTEGER NOT NULL REFERENCES movies(id),
			score DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			is_viewed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, movie_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_user_id ON movie_recommendations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_score ON movie_recommendations(score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_viewing_history_user_id ON viewing_history(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_user_id ON reviews(user_id)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
