package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mmcdole/reel/internal/domain"
)

// sqliteBackend keeps every category in a single movie table.
// A NULL genre_id marks a top rated row.
type sqliteBackend struct {
	conn *sql.DB
}

func openSQLite(path string) (*sqliteBackend, error) {
	conn, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps delete and insert from interleaving across connections
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &sqliteBackend{conn: conn}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

func (db *sqliteBackend) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS movie (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		poster_path TEXT NOT NULL,
		genre_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_movie_genre_id ON movie (genre_id);
	`

	_, err := db.conn.Exec(query)
	return err
}

// scope returns the WHERE clause and args selecting the rows of c
func scope(c domain.Category) (string, []any) {
	if gid := c.GenreID(); gid != "" {
		return "genre_id = ?", []any{gid}
	}
	return "genre_id IS NULL", nil
}

func (db *sqliteBackend) load(ctx context.Context, c domain.Category) ([]domain.Movie, error) {
	where, args := scope(c)
	rows, err := db.conn.QueryContext(ctx, "SELECT title, poster_path FROM movie WHERE "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []domain.Movie
	for rows.Next() {
		var m domain.Movie
		if err := rows.Scan(&m.Title, &m.PosterPath); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (db *sqliteBackend) replace(ctx context.Context, c domain.Category, movies []domain.Movie) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	where, args := scope(c)
	if _, err := tx.ExecContext(ctx, "DELETE FROM movie WHERE "+where, args...); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO movie (title, poster_path, genre_id) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	var genreID sql.NullString
	if gid := c.GenreID(); gid != "" {
		genreID = sql.NullString{String: gid, Valid: true}
	}
	for _, m := range movies {
		if _, err := stmt.ExecContext(ctx, m.Title, m.PosterPath, genreID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (db *sqliteBackend) close() error {
	return db.conn.Close()
}
